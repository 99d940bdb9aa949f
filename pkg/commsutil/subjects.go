package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectGateway = "ckan.portal.v1"
	SubjectInvoked = "ckan.invoked"
	QueueGateway   = "ckan-gateway"
)

var tokenReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_", "\t", "_")

// SubjectToken makes an arbitrary action name safe to use as one subject token.
func SubjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return tokenReplacer.Replace(s)
}

// BuildInvokedSubject builds the subject an invocation event is published on,
// e.g. "ckan.invoked.package_show.ok".
func BuildInvokedSubject(base, actionName string, success bool) string {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	return fmt.Sprintf("%s.%s.%s", base, SubjectToken(actionName), outcome)
}
