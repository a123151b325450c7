package transfer

// Listener receives transfer events on the transferring goroutine.
// OnConnected fires once per transfer, after the handshake and before any
// data. OnProgressUpdate fires after every buffer with a non-decreasing
// count; on success the last call reports bytesSoFar == totalBytes.
type Listener interface {
	OnConnected(remoteHost string, remotePort uint16, fileName string, fileSize uint64)
	OnProgressUpdate(bytesSoFar, totalBytes uint64)
}

type NopListener struct{}

func (NopListener) OnConnected(string, uint16, string, uint64) {}
func (NopListener) OnProgressUpdate(uint64, uint64)            {}

// ListenerFuncs adapts plain functions. Nil fields are skipped.
type ListenerFuncs struct {
	Connected func(remoteHost string, remotePort uint16, fileName string, fileSize uint64)
	Progress  func(bytesSoFar, totalBytes uint64)
}

func (l ListenerFuncs) OnConnected(remoteHost string, remotePort uint16, fileName string, fileSize uint64) {
	if l.Connected != nil {
		l.Connected(remoteHost, remotePort, fileName, fileSize)
	}
}

func (l ListenerFuncs) OnProgressUpdate(bytesSoFar, totalBytes uint64) {
	if l.Progress != nil {
		l.Progress(bytesSoFar, totalBytes)
	}
}

// MultiListener fans events out in order.
type MultiListener []Listener

func (m MultiListener) OnConnected(remoteHost string, remotePort uint16, fileName string, fileSize uint64) {
	for _, l := range m {
		l.OnConnected(remoteHost, remotePort, fileName, fileSize)
	}
}

func (m MultiListener) OnProgressUpdate(bytesSoFar, totalBytes uint64) {
	for _, l := range m {
		l.OnProgressUpdate(bytesSoFar, totalBytes)
	}
}
