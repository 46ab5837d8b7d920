package anomaly

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/taskgate/service/audit"
)

// Check names.
const (
	CheckFailureRate = "failure_rate"
	CheckVolume      = "volume"
)

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name      string  `json:"name"`
	Anomaly   bool    `json:"anomaly"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Message   string  `json:"message"`
}

// CheckFunc evaluates one condition over the audit trail.
type CheckFunc func(ctx context.Context, auditor audit.Service) (*CheckResult, error)

// executions decodes execution payloads of entries.
func executions(entries []*audit.Entry) []*audit.ExecutionPayload {
	var ret []*audit.ExecutionPayload
	for _, entry := range entries {
		if entry.Type != audit.TypeExecution {
			continue
		}
		payload := &audit.ExecutionPayload{}
		if err := entry.Decode(payload); err != nil {
			continue
		}
		ret = append(ret, payload)
	}
	return ret
}

// FailureRateCheck flags today's outcome entries when failed/total exceeds
// cfg.MaxRate over at least cfg.MinSamples outcomes.
func FailureRateCheck(cfg FailureRate) CheckFunc {
	return func(ctx context.Context, auditor audit.Service) (*CheckResult, error) {
		entries, err := auditor.TodayLogs(ctx)
		if err != nil {
			return nil, err
		}
		var total, failed int
		for _, payload := range executions(entries) {
			switch payload.Status {
			case audit.ExecutionCompleted:
				total++
			case audit.ExecutionFailed:
				total++
				failed++
			}
		}
		ret := &CheckResult{Name: CheckFailureRate, Threshold: cfg.MaxRate}
		if total > 0 {
			ret.Value = float64(failed) / float64(total)
		}
		switch {
		case total < cfg.MinSamples:
			ret.Message = fmt.Sprintf("%d executions today, below minimum sample of %d", total, cfg.MinSamples)
		case ret.Value > cfg.MaxRate:
			ret.Anomaly = true
			ret.Message = fmt.Sprintf("failure rate %.0f%% (%d/%d) exceeds %.0f%%", ret.Value*100, failed, total, cfg.MaxRate*100)
		default:
			ret.Message = fmt.Sprintf("failure rate %.0f%% (%d/%d)", ret.Value*100, failed, total)
		}
		return ret, nil
	}
}

// VolumeCheck flags more than cfg.MaxPerHour started executions within the trailing hour.
func VolumeCheck(cfg Volume, now func() time.Time) CheckFunc {
	return func(ctx context.Context, auditor audit.Service) (*CheckResult, error) {
		entries, err := auditor.Since(ctx, now().Add(-time.Hour))
		if err != nil {
			return nil, err
		}
		count := 0
		for _, payload := range executions(entries) {
			if payload.Status == audit.ExecutionStarted {
				count++
			}
		}
		ret := &CheckResult{Name: CheckVolume, Value: float64(count), Threshold: float64(cfg.MaxPerHour)}
		if count > cfg.MaxPerHour {
			ret.Anomaly = true
			ret.Message = fmt.Sprintf("%d executions in the last hour exceeds %d", count, cfg.MaxPerHour)
		} else {
			ret.Message = fmt.Sprintf("%d executions in the last hour", count)
		}
		return ret, nil
	}
}
