package audit

import (
	"encoding/hex"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"
)

// chainHash computes BLAKE2b-256 over the previous hash and the entry fields.
func chainHash(prevHash string, e *Entry) string {
	h, _ := blake2b.New256(nil)
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	write(prevHash)
	write(e.ID)
	write(e.Timestamp.UTC().Format(time.RFC3339Nano))
	write(string(e.Type))
	write(e.TaskID)
	write(strconv.FormatInt(e.Seq, 10))
	write(string(e.Payload))
	return hex.EncodeToString(h.Sum(nil))
}
