// Package anomaly samples the audit trail for unhealthy execution patterns and
// owns the system-wide kill switch. A detected anomaly pauses dispatching
// until Resume is called explicitly.
package anomaly
