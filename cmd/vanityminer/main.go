// Command vanityminer searches for Sui object IDs whose hex encoding
// begins with a user-chosen prefix, either as a one-shot CLI invocation
// or as a persistent local server (--server) driving the same engine
// over a JSON-over-loopback protocol.
package main

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sui-tools/vanity-miner/internal/config"
	"github.com/sui-tools/vanity-miner/internal/dashboard"
	"github.com/sui-tools/vanity-miner/internal/engine"
	"github.com/sui-tools/vanity-miner/internal/gpu"
	"github.com/sui-tools/vanity-miner/internal/hardware"
	"github.com/sui-tools/vanity-miner/internal/minerr"
	"github.com/sui-tools/vanity-miner/internal/prefixmatcher"
	"github.com/sui-tools/vanity-miner/internal/server"
	"github.com/sui-tools/vanity-miner/internal/sui"
	"github.com/sui-tools/vanity-miner/internal/template"
)

var (
	serverFlag = flag.Bool("server", false, "run the persistent server driver instead of a one-shot CLI job")
	serverPort = flag.Int("port", 0, "server TCP port (default 9876, loopback only)")

	prefixFlag     = flag.String("prefix", "", "target hex prefix for the vanity object ID")
	senderFlag     = flag.String("sender", "", "sender address, 0x-prefixed hex")
	gasObjectFlag  = flag.String("gas-object", "", "gas coin reference as id:version:digest")
	gasBudgetFlag  = flag.Uint64("gas-budget", 0, "base gas budget (default 10^8)")
	gasPriceFlag   = flag.Uint64("gas-price", 0, "gas price (default 10^3)")
	threadsFlag    = flag.Int("threads", 0, "worker count (0 = all logical cores)")
	startNonceFlag = flag.Uint64("start-nonce", 0, "resume point for the nonce search")
	noUIFlag       = flag.Bool("no-ui", false, "disable the live dashboard; print plain log lines instead")
	dryRunFlag     = flag.Bool("dry-run", false, "build the template and print its size without mining")

	moduleFlag       = flag.String("module", "", "comma-separated paths to compiled Move modules (package mode)")
	splitAmountsFlag = flag.String("split-amounts", "", "comma-separated u64 split amounts (gas mode)")
	gasBalanceFlag   = flag.Uint64("gas-balance", 0, "gas object's current balance, validated against split amounts")

	packageFlag     = flag.String("package", "", "Move package address (move mode)")
	moveModuleFlag  = flag.String("call-module", "", "Move module name (move mode)")
	functionFlag    = flag.String("function", "", "Move function name (move mode)")
	objectIndexFlag = flag.Uint64("object-index", 0, "object index the derivation spec watches (move mode)")
	typeArgsFlag    = flag.String("type-args", "", "comma-separated Move type tags (move mode)")
	argFlags        stringListFlag
)

func init() {
	flag.Var(&argFlags, "arg", "one call argument as kind:value, kind in {string,address,bool,number,object}; repeatable (move mode)")
}

// stringListFlag accumulates repeated occurrences of a flag, e.g.
// -arg string:hi -arg number:42.
type stringListFlag []string

func (f *stringListFlag) String() string {
	if f == nil {
		return ""
	}
	return strings.Join(*f, ",")
}

func (f *stringListFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	args := os.Args[1:]
	subcommand := "package"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		subcommand = args[0]
		args = args[1:]
	}
	flag.CommandLine.Parse(args)
	defaults := config.Load()

	if *serverFlag {
		runServer(defaults)
		return
	}

	code := runCLI(subcommand, defaults)
	os.Exit(code)
}

func runServer(defaults *config.Defaults) {
	port := *serverPort
	if port == 0 {
		port = defaults.ServerPort
	}
	srv := server.New(port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("vanity-miner server: received shutdown signal, exiting")
		os.Exit(0)
	}()

	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("vanity-miner server: %v", err)
	}
}

func runCLI(subcommand string, defaults *config.Defaults) int {
	gasBudget := *gasBudgetFlag
	if gasBudget == 0 {
		gasBudget = defaults.GasBudget
	}
	gasPrice := *gasPriceFlag
	if gasPrice == 0 {
		gasPrice = defaults.GasPrice
	}

	tmpl, matcher, mode, err := buildTemplate(subcommand, gasBudget, gasPrice)
	if err != nil {
		return failWithErr(err)
	}

	if *dryRunFlag {
		fmt.Printf(
			"template built: %d bytes, mode=%s\nnonce_offset=%d\nderivation=%s indices=[%d,%d)\ntx_bytes=%s\n",
			len(tmpl.Bytes), mode, tmpl.NonceOffset,
			tmpl.Derivation.Algorithm, tmpl.Derivation.Scheme.Start, tmpl.Derivation.Scheme.End,
			base64.StdEncoding.EncodeToString(tmpl.Bytes),
		)
		return 0
	}

	caps := hardware.Detect()
	workers := hardware.ResolveWorkers(*threadsFlag, caps)

	var dispatcher gpu.Dispatcher = gpu.NullDispatcher{}
	if dispatcher.Available() {
		log.Printf("gpu: dispatching through %s backend", dispatcher.Name())
	} else {
		log.Printf("gpu: no backend available, using %d CPU worker(s)", workers)
	}

	job := engine.MiningJob{
		Mode:       mode,
		Template:   tmpl,
		Matcher:    matcher,
		Workers:    workers,
		StartNonce: *startNonceFlag,
	}
	handle := engine.New(job)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		handle.Cancel()
	}()

	if *noUIFlag {
		return runHeadless(handle, mode)
	}
	return runDashboard(handle, mode)
}

func runHeadless(handle *engine.EngineHandle, mode engine.Mode) int {
	done := make(chan struct{})
	var hit *engine.MiningHit
	var runErr error
	go func() {
		hit, runErr = handle.Run()
		close(done)
	}()

	for report := range handle.Progress() {
		log.Printf("attempts=%d hashrate=%.0f H/s last_nonce=%d", report.Attempts, report.Hashrate, report.LastNonce)
	}
	<-done

	engine.LogSummary(mode, hit, handle.LastNonce(), runErr)
	printJSONOutcome(mode, hit, handle.LastNonce(), runErr)
	return reportOutcome(hit, handle.LastNonce(), runErr)
}

func runDashboard(handle *engine.EngineHandle, mode engine.Mode) int {
	progressCh := make(chan engine.ProgressReport, 8)
	resultCh := make(chan dashboard.Result, 1)

	go func() {
		for report := range handle.Progress() {
			progressCh <- report
		}
		close(progressCh)
	}()

	go func() {
		hit, err := handle.Run()
		resultCh <- dashboard.NewResult(hit, err)
	}()

	model := dashboard.New(mode, *prefixFlag, progressCh, resultCh)
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dashboard error: %v\n", err)
		return minerr.InternalError.ExitCode()
	}

	final := finalModel.(dashboard.Model)
	hit, runErr := final.Outcome()
	return reportOutcome(hit, handle.LastNonce(), runErr)
}

func reportOutcome(hit *engine.MiningHit, lastNonce uint64, err error) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if me, ok := err.(*minerr.Error); ok {
			return me.Kind.ExitCode()
		}
		return minerr.InternalError.ExitCode()
	}
	if hit == nil {
		fmt.Printf("cancelled; last_nonce=%d\n", lastNonce)
		return minerr.Cancelled.ExitCode()
	}
	fmt.Printf("hit! nonce=%d object_index=%d\nobject_id=%s\ntx_digest=%s\ntx_bytes=%s\n",
		hit.Nonce, hit.ObjectIndex,
		hex.EncodeToString(hit.ObjectID[:]),
		hex.EncodeToString(hit.TxDigest[:]),
		base64.StdEncoding.EncodeToString(hit.TxBytes),
	)
	return 0
}

// foundTypeFor maps a job's mode to the same "*_found" message-type
// string the server uses in its found frames, so both drivers agree on
// field names (SPEC_FULL.md's --no-ui structured-output supplement).
func foundTypeFor(mode engine.Mode) string {
	switch mode {
	case engine.ModePackagePublish:
		return server.MsgPackageFound
	case engine.ModeSplitCoin:
		return server.MsgGasCoinFound
	default:
		return server.MsgMoveCallFound
	}
}

// printJSONOutcome emits the --no-ui job outcome as a single JSON line on
// stdout, shaped like the server's found/stopped/error frames, so scripts
// driving the CLI can parse the same fields a server client would. Only
// called from runHeadless, i.e. only when --no-ui was set.
func printJSONOutcome(mode engine.Mode, hit *engine.MiningHit, lastNonce uint64, err error) {
	var payload interface{}
	switch {
	case err != nil:
		payload = server.ErrorMessage{Type: server.MsgError, Kind: errKind(err), Message: err.Error()}
	case hit == nil:
		payload = server.StoppedMessage{Type: server.MsgStopped, LastNonce: lastNonce}
	default:
		payload = server.FoundMessage{
			Type:        foundTypeFor(mode),
			Nonce:       hit.Nonce,
			ObjectIndex: hit.ObjectIndex,
			TxDigest:    hex.EncodeToString(hit.TxDigest[:]),
			ObjectID:    hex.EncodeToString(hit.ObjectID[:]),
			TxBytes:     base64.StdEncoding.EncodeToString(hit.TxBytes),
		}
	}
	b, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return
	}
	fmt.Println(string(b))
}

func errKind(err error) string {
	if me, ok := err.(*minerr.Error); ok {
		return me.Kind.String()
	}
	return minerr.InternalError.String()
}

func failWithErr(err error) int {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if me, ok := err.(*minerr.Error); ok {
		return me.Kind.ExitCode()
	}
	return minerr.InvalidInput.ExitCode()
}

func buildTemplate(subcommand string, gasBudget, gasPrice uint64) (*template.Template, *prefixmatcher.Matcher, engine.Mode, error) {
	gasObject, err := parseGasObject(*gasObjectFlag)
	if err != nil {
		return nil, nil, 0, err
	}
	sender, err := sui.ParseAddress(*senderFlag)
	if err != nil {
		return nil, nil, 0, err
	}

	switch subcommand {
	case "package":
		modules, err := loadModules(*moduleFlag)
		if err != nil {
			return nil, nil, 0, err
		}
		tmpl, matcher, err := template.BuildPublish(template.PublishInput{
			Sender:        sender,
			Modules:       modules,
			GasObject:     gasObject,
			GasPrice:      gasPrice,
			BaseGasBudget: gasBudget,
		}, *prefixFlag)
		return tmpl, matcher, engine.ModePackagePublish, err

	case "gas":
		amounts, err := parseAmounts(*splitAmountsFlag)
		if err != nil {
			return nil, nil, 0, err
		}
		tmpl, matcher, err := template.BuildSplitCoin(template.SplitCoinInput{
			Sender:        sender,
			GasObject:     gasObject,
			GasPrice:      gasPrice,
			BaseGasBudget: gasBudget,
			SplitAmounts:  amounts,
			GasBalance:    *gasBalanceFlag,
		}, *prefixFlag)
		return tmpl, matcher, engine.ModeSplitCoin, err

	case "move":
		pkg, err := sui.ParseAddress(*packageFlag)
		if err != nil {
			return nil, nil, 0, err
		}
		typeArgs, err := parseTypeArgs(*typeArgsFlag)
		if err != nil {
			return nil, nil, 0, err
		}
		callArgs, err := parseCallArgs(argFlags)
		if err != nil {
			return nil, nil, 0, err
		}
		tmpl, matcher, err := template.BuildGenericCall(template.GenericCallInput{
			Sender:        sender,
			Package:       pkg,
			Module:        *moveModuleFlag,
			Function:      *functionFlag,
			TypeArgs:      typeArgs,
			Args:          callArgs,
			TargetIndex:   *objectIndexFlag,
			GasObject:     gasObject,
			GasPrice:      gasPrice,
			BaseGasBudget: gasBudget,
		}, *prefixFlag)
		return tmpl, matcher, engine.ModeGenericCall, err

	default:
		return nil, nil, 0, minerr.New(minerr.InvalidInput, "unknown subcommand %q (want package, gas, or move)", subcommand)
	}
}

func parseGasObject(s string) (sui.ObjectRef, error) {
	var ref sui.ObjectRef
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return ref, minerr.New(minerr.InvalidInput, "--gas-object must be id:version:digest, got %q", s)
	}
	id, err := sui.ParseAddress(parts[0])
	if err != nil {
		return ref, err
	}
	version, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return ref, minerr.New(minerr.InvalidInput, "--gas-object version must be a u64: %v", err)
	}
	digestBytes, err := hex.DecodeString(strings.TrimPrefix(parts[2], "0x"))
	if err != nil || len(digestBytes) != 32 {
		return ref, minerr.New(minerr.InvalidInput, "--gas-object digest must be 32 hex bytes")
	}
	var digest sui.Address
	copy(digest[:], digestBytes)
	return sui.ObjectRef{ID: id, Version: version, Digest: digest}, nil
}

func loadModules(paths string) ([]template.ModuleFile, error) {
	if paths == "" {
		return nil, minerr.New(minerr.InvalidInput, "--module is required for package mode")
	}
	var modules []template.ModuleFile
	for _, p := range strings.Split(paths, ",") {
		p = strings.TrimSpace(p)
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, minerr.New(minerr.InvalidInput, "reading module %q: %v", p, err)
		}
		modules = append(modules, template.ModuleFile{Filename: p, Bytecode: data})
	}
	return modules, nil
}

func parseTypeArgs(csvTypeArgs string) ([]sui.TypeTag, error) {
	if csvTypeArgs == "" {
		return nil, nil
	}
	parts := strings.Split(csvTypeArgs, ",")
	tags := make([]sui.TypeTag, len(parts))
	for i, p := range parts {
		tag, err := sui.ParseTypeTag(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		tags[i] = tag
	}
	return tags, nil
}

// parseCallArgs turns repeated -arg kind:value flags into CallArgSpecs,
// mirroring internal/server's decodeCallArgs: kind is one of string,
// address, bool, number, object. object's value is itself id:version:digest,
// reusing parseGasObject's grammar.
func parseCallArgs(raw []string) ([]template.CallArgSpec, error) {
	specs := make([]template.CallArgSpec, len(raw))
	for i, a := range raw {
		kind, rest, ok := strings.Cut(a, ":")
		if !ok {
			return nil, minerr.New(minerr.InvalidInput, "--arg %q must be kind:value", a)
		}
		switch kind {
		case "string":
			specs[i] = template.CallArgSpec{Pure: []byte(rest)}
		case "address":
			addr, err := sui.ParseAddress(rest)
			if err != nil {
				return nil, err
			}
			specs[i] = template.CallArgSpec{Pure: append([]byte(nil), addr[:]...)}
		case "bool":
			v, err := strconv.ParseBool(rest)
			if err != nil {
				return nil, minerr.New(minerr.InvalidInput, "--arg %q: not a bool: %v", a, err)
			}
			b := byte(0)
			if v {
				b = 1
			}
			specs[i] = template.CallArgSpec{Pure: []byte{b}}
		case "number":
			n, err := strconv.ParseUint(rest, 10, 64)
			if err != nil {
				return nil, minerr.New(minerr.InvalidInput, "--arg %q: not a u64: %v", a, err)
			}
			var b [8]byte
			for j := 0; j < 8; j++ {
				b[j] = byte(n)
				n >>= 8
			}
			specs[i] = template.CallArgSpec{Pure: b[:]}
		case "object":
			ref, err := parseGasObject(rest)
			if err != nil {
				return nil, err
			}
			specs[i] = template.CallArgSpec{Object: &ref}
		default:
			return nil, minerr.New(minerr.InvalidInput, "--arg %q: unknown kind %q (want string, address, bool, number, or object)", a, kind)
		}
	}
	return specs, nil
}

func parseAmounts(csvAmounts string) ([]uint64, error) {
	if csvAmounts == "" {
		return nil, minerr.New(minerr.InvalidInput, "--split-amounts is required for gas mode")
	}
	r := csv.NewReader(strings.NewReader(csvAmounts))
	fields, err := r.Read()
	if err != nil {
		return nil, minerr.New(minerr.InvalidInput, "parsing --split-amounts: %v", err)
	}
	amounts := make([]uint64, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, minerr.New(minerr.InvalidInput, "split amount %q is not a valid u64", f)
		}
		amounts[i] = n
	}
	return amounts, nil
}
