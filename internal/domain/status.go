package domain

// StatusKind enumerates the connection status variants.
type StatusKind int

const (
	// StatusNotConfigured is the zero value: nothing is known about the platform.
	StatusNotConfigured StatusKind = iota
	StatusConnected
	StatusWarning
	StatusError
)

// ConnectionStatus is the result of a health check, and doubles as the terminal
// outcome of a fetch attempt. Reason is only set for Warning and Error.
type ConnectionStatus struct {
	Kind   StatusKind
	Reason string
}

// Connected returns a healthy status.
func Connected() ConnectionStatus { return ConnectionStatus{Kind: StatusConnected} }

// Warning returns a degraded-but-usable status.
func Warning(reason string) ConnectionStatus {
	return ConnectionStatus{Kind: StatusWarning, Reason: reason}
}

// Failure returns an error status.
func Failure(reason string) ConnectionStatus {
	return ConnectionStatus{Kind: StatusError, Reason: reason}
}

// NotConfigured returns the status of a platform lacking credentials or a URL.
func NotConfigured() ConnectionStatus { return ConnectionStatus{Kind: StatusNotConfigured} }

// IsOK reports whether the status is Connected.
func (s ConnectionStatus) IsOK() bool {
	return s.Kind == StatusConnected
}

// Icon returns the status icon shown next to a platform.
func (s ConnectionStatus) Icon() string {
	switch s.Kind {
	case StatusConnected:
		return "✅"
	case StatusWarning:
		return "⚠️"
	case StatusError:
		return "❌"
	default:
		return "⚪"
	}
}

func (s ConnectionStatus) String() string {
	switch s.Kind {
	case StatusConnected:
		return "Connected"
	case StatusWarning:
		return "Warning: " + s.Reason
	case StatusError:
		return "Error: " + s.Reason
	default:
		return "Not configured"
	}
}
