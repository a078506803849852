package hdi

// BindMode selects how a service is bound to its caller.
type BindMode string

const (
	// BindPassthrough loads the implementation in-process through the Loader.
	BindPassthrough BindMode = "PASSTHROUGH"
	// BindRemote obtains the service from the remote service manager.
	BindRemote BindMode = "REMOTE"
)

type ServiceState string

const (
	ServiceStart ServiceState = "START"
	ServiceStop  ServiceState = "STOP"
)

// ServiceStatus is delivered to status listeners when a service appears in
// or disappears from the service manager.
type ServiceStatus struct {
	Name     string
	DevClass uint16
	State    ServiceState
	Info     ServiceInfo
}

// DevClassAll matches every device class in status filters.
const DevClassAll uint16 = 0
