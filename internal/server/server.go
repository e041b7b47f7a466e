package server

import (
	"bufio"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/sui-tools/vanity-miner/internal/engine"
	"github.com/sui-tools/vanity-miner/internal/hardware"
	"github.com/sui-tools/vanity-miner/internal/minerr"
	"github.com/sui-tools/vanity-miner/internal/prefixmatcher"
	"github.com/sui-tools/vanity-miner/internal/sui"
	"github.com/sui-tools/vanity-miner/internal/template"
)

// DefaultPort is the fixed loopback port the server listens on unless
// overridden (spec section 4.5).
const DefaultPort = 9876

// jobSlot is the server's one piece of long-lived mutable state: the
// currently running job, if any, guarded by Mu.
type jobSlot struct {
	Mu      sync.Mutex
	Handle  *engine.EngineHandle
	Mode    engine.Mode
	Running bool
}

func (s *jobSlot) tryAcquire(h *engine.EngineHandle, mode engine.Mode) bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Running {
		return false
	}
	s.Handle = h
	s.Mode = mode
	s.Running = true
	return true
}

func (s *jobSlot) release() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.Handle = nil
	s.Running = false
}

func (s *jobSlot) current() (*engine.EngineHandle, bool) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.Handle, s.Running
}

// Server owns the listener and the single job slot every connection
// shares.
type Server struct {
	Port int
	job  jobSlot
}

// New builds a Server bound to port (0 selects DefaultPort).
func New(port int) *Server {
	if port == 0 {
		port = DefaultPort
	}
	return &Server{Port: port}
}

// ListenAndServe binds 127.0.0.1:Port and accepts connections until
// listener.Close is called or Accept errors.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	defer ln.Close()

	log.Printf("vanity-miner server listening on %s", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("server: accept: %w", err)
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	connID := uuid.NewString()
	log.Printf("server: connection %s opened from %s", connID, conn.RemoteAddr())

	enc := json.NewEncoder(conn)
	send := func(v interface{}) {
		if err := enc.Encode(v); err != nil {
			log.Printf("server: connection %s: write failed: %v", connID, err)
		}
	}

	send(ConnectedMessage{Type: MsgConnected, Version: "1"})

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s.handleFrame(connID, append([]byte(nil), line...), send)
	}
	log.Printf("server: connection %s closed", connID)
}

func (s *Server) handleFrame(connID string, raw []byte, send func(interface{})) {
	msgType, err := peekType(raw)
	if err != nil {
		send(ErrorMessage{Type: MsgError, Kind: minerr.InvalidInput.String(), Message: fmt.Sprintf("malformed frame: %v", err)})
		return
	}

	switch msgType {
	case MsgStartPackageMining:
		s.handleStartPackage(connID, raw, send)
	case MsgStartGasCoinMining:
		s.handleStartGasCoin(connID, raw, send)
	case MsgStartMoveCallMining:
		s.handleStartMoveCall(connID, raw, send)
	case MsgStopMining:
		s.handleStop(send)
	default:
		send(ErrorMessage{Type: MsgError, Kind: minerr.InvalidInput.String(), Message: fmt.Sprintf("unknown message type %q", msgType)})
	}
}

func (s *Server) handleStop(send func(interface{})) {
	handle, running := s.job.current()
	if !running {
		send(ErrorMessage{Type: MsgError, Kind: minerr.InvalidInput.String(), Message: "no job is running"})
		return
	}
	handle.Cancel()
	send(StoppedMessage{Type: MsgStopped, LastNonce: handle.LastNonce()})
}

func decodeGasObject(w gasObjectWire) (sui.ObjectRef, error) {
	var ref sui.ObjectRef
	id, err := sui.ParseAddress(w.ID)
	if err != nil {
		return ref, err
	}
	digestBytes, err := hex.DecodeString(trimHexPrefix(w.Digest))
	if err != nil || len(digestBytes) != 32 {
		return ref, minerr.New(minerr.InvalidInput, "gas_object.digest must be 32 hex bytes")
	}
	var digest sui.Address
	copy(digest[:], digestBytes)
	return sui.ObjectRef{ID: id, Version: w.Version, Digest: digest}, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func (s *Server) handleStartPackage(connID string, raw []byte, send func(interface{})) {
	var req StartPackageMiningRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		send(ErrorMessage{Type: MsgError, Kind: minerr.InvalidInput.String(), Message: err.Error()})
		return
	}

	sender, err := sui.ParseAddress(req.Sender)
	if err != nil {
		send(asErrorMessage(err))
		return
	}
	gasObj, err := decodeGasObject(req.GasObject)
	if err != nil {
		send(asErrorMessage(err))
		return
	}
	modules := make([]template.ModuleFile, len(req.Modules))
	for i, m := range req.Modules {
		bytecode, err := base64.StdEncoding.DecodeString(m)
		if err != nil {
			send(ErrorMessage{Type: MsgError, Kind: minerr.InvalidInput.String(), Message: fmt.Sprintf("module %d: invalid base64: %v", i, err)})
			return
		}
		modules[i] = template.ModuleFile{Filename: fmt.Sprintf("module_%d.mv", i), Bytecode: bytecode}
	}

	tmpl, matcher, err := template.BuildPublish(template.PublishInput{
		Sender:        sender,
		Modules:       modules,
		GasObject:     gasObj,
		GasPrice:      req.GasPrice,
		BaseGasBudget: req.BaseGasBudget,
	}, req.Prefix)
	if err != nil {
		send(asErrorMessage(err))
		return
	}

	s.startJob(connID, engine.ModePackagePublish, tmpl, matcher, req.Workers, req.StartNonce, MsgPackageFound, send)
}

func (s *Server) handleStartGasCoin(connID string, raw []byte, send func(interface{})) {
	var req StartGasCoinMiningRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		send(ErrorMessage{Type: MsgError, Kind: minerr.InvalidInput.String(), Message: err.Error()})
		return
	}

	sender, err := sui.ParseAddress(req.Sender)
	if err != nil {
		send(asErrorMessage(err))
		return
	}
	gasObj, err := decodeGasObject(req.GasObject)
	if err != nil {
		send(asErrorMessage(err))
		return
	}

	tmpl, matcher, err := template.BuildSplitCoin(template.SplitCoinInput{
		Sender:        sender,
		GasObject:     gasObj,
		GasPrice:      req.GasPrice,
		BaseGasBudget: req.BaseGasBudget,
		SplitAmounts:  req.SplitAmounts,
		GasBalance:    req.GasBalance,
	}, req.Prefix)
	if err != nil {
		send(asErrorMessage(err))
		return
	}

	s.startJob(connID, engine.ModeSplitCoin, tmpl, matcher, req.Workers, req.StartNonce, MsgGasCoinFound, send)
}

func (s *Server) handleStartMoveCall(connID string, raw []byte, send func(interface{})) {
	var req StartMoveCallMiningRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		send(ErrorMessage{Type: MsgError, Kind: minerr.InvalidInput.String(), Message: err.Error()})
		return
	}

	sender, err := sui.ParseAddress(req.Sender)
	if err != nil {
		send(asErrorMessage(err))
		return
	}
	pkg, err := sui.ParseAddress(req.Package)
	if err != nil {
		send(asErrorMessage(err))
		return
	}
	gasObj, err := decodeGasObject(req.GasObject)
	if err != nil {
		send(asErrorMessage(err))
		return
	}

	typeArgs := make([]sui.TypeTag, len(req.TypeArgs))
	for i, t := range req.TypeArgs {
		tag, err := sui.ParseTypeTag(t)
		if err != nil {
			send(asErrorMessage(err))
			return
		}
		typeArgs[i] = tag
	}

	args, err := decodeCallArgs(req.Args)
	if err != nil {
		send(asErrorMessage(err))
		return
	}

	tmpl, matcher, err := template.BuildGenericCall(template.GenericCallInput{
		Sender:        sender,
		Package:       pkg,
		Module:        req.Module,
		Function:      req.Function,
		TypeArgs:      typeArgs,
		Args:          args,
		TargetIndex:   req.TargetIndex,
		GasObject:     gasObj,
		GasPrice:      req.GasPrice,
		BaseGasBudget: req.BaseGasBudget,
	}, req.Prefix)
	if err != nil {
		send(asErrorMessage(err))
		return
	}

	s.startJob(connID, engine.ModeGenericCall, tmpl, matcher, req.Workers, req.StartNonce, MsgMoveCallFound, send)
}

func decodeCallArgs(wire []callArgWire) ([]template.CallArgSpec, error) {
	out := make([]template.CallArgSpec, len(wire))
	for i, a := range wire {
		switch a.Kind {
		case "string":
			out[i] = template.CallArgSpec{Pure: []byte(a.String)}
		case "address":
			addr, err := sui.ParseAddress(a.Address)
			if err != nil {
				return nil, err
			}
			out[i] = template.CallArgSpec{Pure: append([]byte(nil), addr[:]...)}
		case "bool":
			v := byte(0)
			if a.Bool {
				v = 1
			}
			out[i] = template.CallArgSpec{Pure: []byte{v}}
		case "number":
			var b [8]byte
			n := a.Number
			for j := 0; j < 8; j++ {
				b[j] = byte(n)
				n >>= 8
			}
			out[i] = template.CallArgSpec{Pure: b[:]}
		case "object":
			if a.Object == nil {
				return nil, minerr.New(minerr.InvalidInput, "arg %d: kind object requires an object field", i)
			}
			ref, err := decodeGasObject(*a.Object)
			if err != nil {
				return nil, err
			}
			out[i] = template.CallArgSpec{Object: &ref}
		default:
			return nil, minerr.New(minerr.InvalidInput, "arg %d: unknown kind %q", i, a.Kind)
		}
	}
	return out, nil
}

func asErrorMessage(err error) ErrorMessage {
	if me, ok := err.(*minerr.Error); ok {
		return ErrorMessage{Type: MsgError, Kind: me.Kind.String(), Message: me.Message}
	}
	return ErrorMessage{Type: MsgError, Kind: minerr.InternalError.String(), Message: err.Error()}
}

// startJob attempts to acquire the single job slot, starts the engine in
// a background goroutine, and streams progress/found/stopped/error
// frames to send as the job runs.
func (s *Server) startJob(connID string, mode engine.Mode, tmpl *template.Template, matcher *prefixmatcher.Matcher, workers int, startNonce uint64, foundType string, send func(interface{})) {
	caps := hardware.Detect()
	resolvedWorkers := hardware.ResolveWorkers(workers, caps)

	job := engine.MiningJob{
		Mode:       mode,
		Template:   tmpl,
		Matcher:    matcher,
		Workers:    resolvedWorkers,
		StartNonce: startNonce,
	}
	handle := engine.New(job)

	if !s.job.tryAcquire(handle, mode) {
		send(ErrorMessage{Type: MsgError, Kind: minerr.JobBusy.String(), Message: "a mining job is already running"})
		return
	}

	send(MiningStartedMessage{Type: MsgMiningStarted, Mode: mode.String()})

	go func() {
		defer s.job.release()

		progressDone := make(chan struct{})
		go func() {
			defer close(progressDone)
			for report := range handle.Progress() {
				send(ProgressMessage{
					Type:      MsgProgress,
					Attempts:  report.Attempts,
					Hashrate:  report.Hashrate,
					LastNonce: report.LastNonce,
				})
			}
		}()

		hit, err := handle.Run()
		<-progressDone

		switch {
		case err != nil:
			send(asErrorMessage(err))
		case hit != nil:
			send(FoundMessage{
				Type:        foundType,
				Nonce:       hit.Nonce,
				ObjectIndex: hit.ObjectIndex,
				TxDigest:    hex.EncodeToString(hit.TxDigest[:]),
				ObjectID:    hex.EncodeToString(hit.ObjectID[:]),
				TxBytes:     base64.StdEncoding.EncodeToString(hit.TxBytes),
			})
		default:
			send(StoppedMessage{Type: MsgStopped, LastNonce: handle.LastNonce()})
		}
		log.Printf("server: connection %s: job %s finished", connID, mode)
	}()
}
