package middleware

import (
	"bytes"
	"net/http"
	"sync"
)

// maxPooledBufferSize keeps unusually large response buffers out of the pool.
const maxPooledBufferSize = 1 << 20

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBufferSize {
		return
	}
	bufferPool.Put(buf)
}

// recorder captures a response so it can be validated before anything
// reaches the client.
type recorder struct {
	header http.Header
	status int
	body   *bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), body: getBuffer()}
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(p)
}

// Status returns the recorded status, 200 when the handler never set one.
func (r *recorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// flush sends the recorded response to w.
func (r *recorder) flush(w http.ResponseWriter) error {
	dst := w.Header()
	for k, v := range r.header {
		dst[k] = v
	}
	w.WriteHeader(r.Status())
	_, err := w.Write(r.body.Bytes())
	return err
}

func (r *recorder) release() {
	putBuffer(r.body)
	r.body = nil
}
