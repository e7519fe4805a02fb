package wsdriver

// Dial is a thin convenience wrapper around NewClientDriver, mirroring
// the teacher's dialer.go NewClient entry point: build the Driver and
// immediately Start it so the handshake request is written before the
// caller does anything else with the returned Driver.
func Dial(path, host string, handler Handler, sink Sink, opts ...Option) *Driver {
	d := NewClientDriver(path, host, handler, sink, opts...)
	d.Start()
	return d
}
