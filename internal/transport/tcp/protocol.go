package tcp

import (
	"bufio"
	"bytes"
	"net"
)

var httpMethods = [][]byte{
	[]byte("GET "),
	[]byte("POST"),
	[]byte("PUT "),
	[]byte("HEAD"),
	[]byte("OPTI"), // OPTIONS
	[]byte("PATC"), // PATCH
	[]byte("DELE"), // DELETE
	[]byte("CONN"), // CONNECT
}

// detectHTTP peeks at the first bytes to tell an HTTP request (WebSocket upgrade)
// from a raw binary client. Binary frames start with a length byte followed by 0x0a,
// so they never look like a method name.
func detectHTTP(reader *bufio.Reader) (bool, error) {
	peek, err := reader.Peek(4)
	if err != nil {
		return false, err
	}
	for _, m := range httpMethods {
		if bytes.HasPrefix(peek, m) {
			return true, nil
		}
	}
	return false, nil
}

// bufferedConn wraps a net.Conn with a bufio.Reader to preserve peeked data
type bufferedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (bc *bufferedConn) Read(p []byte) (int, error) {
	return bc.reader.Read(p)
}
