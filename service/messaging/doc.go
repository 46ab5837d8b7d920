// Package messaging defines a small generic queue abstraction used as the
// notification outbox. memory and fs (viant/afs) implementations live in
// sub-packages.
package messaging
