package internaldefs

import (
	authsystem "github.com/MrEthical07/authsystem"
)

// CounterDef names one engine counter for every exporter. Prometheus exports
// each counter under Name; OpenTelemetry groups counters by Flow and tells them
// apart with an outcome attribute.
type CounterDef struct {
	ID      authsystem.MetricID
	Name    string
	Help    string
	Flow    string
	Outcome string
}

// HistogramDef names one engine histogram for every exporter.
type HistogramDef struct {
	ID   authsystem.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authsystem.MetricRegisterSuccess, Name: "authsystem_register_success_total", Help: "Accounts created.", Flow: "register", Outcome: "success"},
	{ID: authsystem.MetricRegisterDuplicate, Name: "authsystem_register_duplicate_total", Help: "Registrations rejected because the email is taken.", Flow: "register", Outcome: "duplicate"},
	{ID: authsystem.MetricRegisterWeakPassword, Name: "authsystem_register_weak_password_total", Help: "Registrations rejected by the password policy.", Flow: "register", Outcome: "weak_password"},
	{ID: authsystem.MetricRegisterFailure, Name: "authsystem_register_failure_total", Help: "Registrations failed for any other reason.", Flow: "register", Outcome: "failure"},
	{ID: authsystem.MetricLoginSuccess, Name: "authsystem_login_success_total", Help: "Successful logins.", Flow: "login", Outcome: "success"},
	{ID: authsystem.MetricLoginFailure, Name: "authsystem_login_failure_total", Help: "Failed logins.", Flow: "login", Outcome: "failure"},
	{ID: authsystem.MetricLoginUnconfirmed, Name: "authsystem_login_unconfirmed_total", Help: "Valid credentials on unconfirmed accounts.", Flow: "login", Outcome: "unconfirmed"},
	{ID: authsystem.MetricPasswordUpgraded, Name: "authsystem_password_upgraded_total", Help: "Password hashes re-hashed on login.", Flow: "login", Outcome: "password_upgraded"},
	{ID: authsystem.MetricConfirmSuccess, Name: "authsystem_confirm_success_total", Help: "Confirmed email addresses.", Flow: "confirm", Outcome: "success"},
	{ID: authsystem.MetricConfirmInvalidToken, Name: "authsystem_confirm_invalid_token_total", Help: "Confirmations with an unknown token.", Flow: "confirm", Outcome: "invalid_token"},
	{ID: authsystem.MetricConfirmExpiredToken, Name: "authsystem_confirm_expired_token_total", Help: "Confirmations with an expired token.", Flow: "confirm", Outcome: "expired_token"},
	{ID: authsystem.MetricConfirmFailure, Name: "authsystem_confirm_failure_total", Help: "Confirmations failed for any other reason.", Flow: "confirm", Outcome: "failure"},
	{ID: authsystem.MetricResendSuccess, Name: "authsystem_resend_success_total", Help: "Confirmation emails re-issued.", Flow: "resend", Outcome: "success"},
	{ID: authsystem.MetricResendUnknownEmail, Name: "authsystem_resend_unknown_email_total", Help: "Resend requests for unknown emails.", Flow: "resend", Outcome: "unknown_email"},
	{ID: authsystem.MetricResendAlreadyConfirmed, Name: "authsystem_resend_already_confirmed_total", Help: "Resend requests for confirmed accounts.", Flow: "resend", Outcome: "already_confirmed"},
	{ID: authsystem.MetricResendFailure, Name: "authsystem_resend_failure_total", Help: "Resend requests failed for any other reason.", Flow: "resend", Outcome: "failure"},
	{ID: authsystem.MetricProfileRead, Name: "authsystem_profile_read_total", Help: "Profile reads.", Flow: "profile", Outcome: "read"},
	{ID: authsystem.MetricProfileUpdated, Name: "authsystem_profile_updated_total", Help: "Profile updates.", Flow: "profile", Outcome: "updated"},
	{ID: authsystem.MetricProfileFailure, Name: "authsystem_profile_failure_total", Help: "Failed profile operations.", Flow: "profile", Outcome: "failure"},
	{ID: authsystem.MetricSessionIssued, Name: "authsystem_session_issued_total", Help: "Session tokens issued.", Flow: "session", Outcome: "issued"},
	{ID: authsystem.MetricSessionRejected, Name: "authsystem_session_rejected_total", Help: "Session tokens rejected by validation.", Flow: "session", Outcome: "rejected"},
	{ID: authsystem.MetricNotificationSent, Name: "authsystem_notification_sent_total", Help: "Notifications delivered.", Flow: "notification", Outcome: "sent"},
	{ID: authsystem.MetricNotificationFailed, Name: "authsystem_notification_failed_total", Help: "Notifications whose delivery failed.", Flow: "notification", Outcome: "failed"},
	{ID: authsystem.MetricNotificationDropped, Name: "authsystem_notification_dropped_total", Help: "Notifications dropped before delivery.", Flow: "notification", Outcome: "dropped"},
}

var HistogramDefs = []HistogramDef{
	{ID: authsystem.MetricValidateLatency, Name: "authsystem_validate_latency_seconds", Help: "Session validation latency."},
}

// HistogramUpperBounds mirror the engine's bucket edges, in seconds. The last
// bucket is +Inf and has no entry.
var HistogramUpperBounds = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1}

// HistogramBounds label the cumulative buckets, ending with +Inf.
var HistogramBounds = []string{
	"0.001",
	"0.002",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// Flows lists the distinct CounterDef flows in definition order.
func Flows() []string {
	var out []string
	seen := make(map[string]bool)
	for _, def := range CounterDefs {
		if !seen[def.Flow] {
			seen[def.Flow] = true
			out = append(out, def.Flow)
		}
	}
	return out
}

// The audit dropped counter comes from the dispatcher, not the snapshot.
const (
	AuditDroppedName = "authsystem_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped due to dispatcher backpressure."
)

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
