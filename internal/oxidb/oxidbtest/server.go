// Package oxidbtest provides an in-process fake of oxidb-server for tests.
// It speaks the length-prefixed JSON protocol and implements the commands
// used by the oxidb client with in-memory collections.
package oxidbtest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
)

type Server struct {
	ln net.Listener

	mu          sync.Mutex
	collections map[string][]map[string]any
	unique      map[string][]string
	nextID      float64
	failures    map[string]string
	commands    []string
	conns       map[net.Conn]struct{}
	wg          sync.WaitGroup
}

// NewServer starts a fake server on a random loopback port.
func NewServer() (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:          ln,
		collections: make(map[string][]map[string]any),
		unique:      make(map[string][]string),
		failures:    make(map[string]string),
		conns:       make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

// Addr is the "host:port" the server listens on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) Close() error {
	err := s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// FailNext makes the next request for cmd answer with an error.
func (s *Server) FailNext(cmd, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[cmd] = msg
}

// Docs returns a copy of the documents stored in a collection.
func (s *Server) Docs(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.collections[collection]))
	copy(out, s.collections[collection])
	return out
}

// Commands returns the commands received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				conn.Close()
			}()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	for {
		lenBuf := make([]byte, 4)
		if _, err := io.ReadFull(conn, lenBuf); err != nil {
			return
		}
		payload := make([]byte, binary.LittleEndian.Uint32(lenBuf))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		var req map[string]any
		var resp map[string]any
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = map[string]any{"ok": false, "error": "bad json"}
		} else {
			resp = s.dispatch(req)
		}

		out, _ := json.Marshal(resp)
		frame := make([]byte, 4+len(out))
		binary.LittleEndian.PutUint32(frame, uint32(len(out)))
		copy(frame[4:], out)
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd, _ := req["cmd"].(string)
	s.commands = append(s.commands, cmd)
	if msg, ok := s.failures[cmd]; ok {
		delete(s.failures, cmd)
		return fail(msg)
	}

	coll, _ := req["collection"].(string)
	switch cmd {
	case "ping":
		return ok("pong")
	case "list_collections":
		names := make([]any, 0, len(s.collections))
		for name := range s.collections {
			names = append(names, name)
		}
		return ok(names)
	case "create_collection":
		if _, exists := s.collections[coll]; !exists {
			s.collections[coll] = nil
		}
		return ok("ok")
	case "create_unique_index":
		field, _ := req["field"].(string)
		s.unique[coll] = append(s.unique[coll], field)
		return ok("ok")
	case "insert":
		doc, _ := req["doc"].(map[string]any)
		for _, field := range s.unique[coll] {
			for _, existing := range s.collections[coll] {
				if existing[field] == doc[field] {
					return fail(fmt.Sprintf("unique constraint violated on %s", field))
				}
			}
		}
		s.nextID++
		stored := make(map[string]any, len(doc)+1)
		for k, v := range doc {
			stored[k] = v
		}
		stored["_id"] = s.nextID
		s.collections[coll] = append(s.collections[coll], stored)
		return ok(map[string]any{"id": s.nextID})
	case "find":
		query, _ := req["query"].(map[string]any)
		docs := s.match(coll, query)
		if sortSpec, _ := req["sort"].(map[string]any); sortSpec["_id"] == float64(-1) {
			sort.SliceStable(docs, func(i, j int) bool {
				return docs[i]["_id"].(float64) > docs[j]["_id"].(float64)
			})
		}
		out := make([]any, len(docs))
		for i, d := range docs {
			out[i] = d
		}
		return ok(out)
	case "count":
		query, _ := req["query"].(map[string]any)
		return ok(map[string]any{"count": len(s.match(coll, query))})
	default:
		return fail("unknown command: " + cmd)
	}
}

func (s *Server) match(coll string, query map[string]any) []map[string]any {
	var out []map[string]any
	for _, d := range s.collections[coll] {
		matched := true
		for k, v := range query {
			if d[k] != v {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, d)
		}
	}
	return out
}

func ok(data any) map[string]any { return map[string]any{"ok": true, "data": data} }

func fail(msg string) map[string]any { return map[string]any{"ok": false, "error": msg} }
