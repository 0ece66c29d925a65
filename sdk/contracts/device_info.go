package contracts

// EndpointInfo describes a MIDI source or destination exposed by a port driver.
type EndpointInfo struct {
	Name         string // Endpoint name, matched against the configured substring.
	Manufacturer string // Endpoint manufacturer, when the platform reports one.
	EntityName   string // Name of the entity to which the endpoint belongs.
}
