package protocol

import (
	"fmt"
	"io"
	"log"
	"net"

	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"github.com/ledsign/boxplayer/internal/metrics"
)

// MaxConcurrentConnections caps simultaneous TCP sessions, independent of
// the player-command queue's backpressure, guarding accept-time resource
// use the way the player's own queue guards the render loop.
const MaxConcurrentConnections = 64

// AcceptRateLimit bounds how fast new connections are admitted, floor-
// level protection against connection floods (spec's only documented
// backpressure is the command queue; this adds an accept-time limiter on
// top of it without changing any documented wire semantics).
const AcceptRateLimit = 20 // connections/sec
const AcceptRateBurst = 40

// Server is the TCP control-channel listener: one per-connection session,
// one shared dispatcher.
type Server struct {
	Dispatcher *Dispatcher
	listener   net.Listener
	limiter    *rate.Limiter
}

// Listen binds the TCP port and wraps it with a connection cap.
func Listen(addr string, dispatcher *Dispatcher) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("protocol: listen %s: %w", addr, err)
	}
	limited := netutil.LimitListener(ln, MaxConcurrentConnections)
	return &Server{
		Dispatcher: dispatcher,
		listener:   limited,
		limiter:    rate.NewLimiter(rate.Limit(AcceptRateLimit), AcceptRateBurst),
	}, nil
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	log.Printf("protocol: listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		if !s.limiter.Allow() {
			log.Printf("protocol: accept rate exceeded, dropping connection from %s", conn.RemoteAddr())
			conn.Close()
			continue
		}
		go s.handleConnection(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	addr := conn.RemoteAddr()
	log.Printf("protocol: connection from %s", addr)

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	session := NewSession()
	for {
		frame, err := ReadFrame(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("protocol: framing error from %s: %v", addr, err)
			}
			return
		}
		resp := s.handleFrame(session, frame)
		if resp == nil {
			continue
		}
		if _, err := conn.Write(resp); err != nil {
			log.Printf("protocol: write error to %s: %v", addr, err)
			return
		}
	}
}

func (s *Server) handleFrame(session *Session, frame Frame) []byte {
	switch frame.Cmd {
	case CmdTCPHeartbeatAsk:
		return EncodeHeartbeatAnswer()

	case CmdSDKServiceAsk:
		return EncodeSDKServiceAnswer()

	case CmdSDKCmdAsk:
		totalLen, index, chunk, err := DecodeSDKCmdAsk(frame.Body)
		if err != nil {
			log.Printf("protocol: malformed sdk command: %v", err)
			return nil
		}
		if err := session.AccumulateXML(chunk, totalLen, index); err != nil {
			log.Printf("protocol: %v from %v", err, session.GUID)
			return nil
		}
		if !session.XMLComplete() {
			return nil
		}
		xml := session.TakeXML()
		reply := s.Dispatcher.Dispatch(session.GUID, string(xml))
		return EncodeSDKCmdAnswer(reply)

	case CmdFileStartAsk:
		md5, filename, size, fileType, err := DecodeFileStartAsk(frame.Body)
		if err != nil {
			log.Printf("protocol: malformed file start: %v", err)
			return nil
		}
		if err := session.StartFileTransfer(filename, size, fileType, md5); err != nil {
			log.Printf("protocol: rejecting file start for %s: %v", filename, err)
			return nil
		}
		return EncodeFileStartAnswer()

	case CmdFileContentAsk:
		session.AppendFileData(frame.Body)
		return nil

	case CmdFileEndAsk:
		transfer := session.CompleteFileTransfer()
		if transfer != nil {
			if err := s.Dispatcher.Store.SaveFile(transfer.Filename, transfer.Data, transfer.MD5); err != nil {
				log.Printf("protocol: failed to save file %s: %v", transfer.Filename, err)
			} else {
				metrics.FileTransfersCompleted.Inc()
			}
		}
		return EncodeFileEndAnswer()

	default:
		log.Printf("protocol: unknown command 0x%04x", frame.Cmd)
		return nil
	}
}
