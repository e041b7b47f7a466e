package server

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestServer starts a Server on an ephemeral port and returns the port.
func startTestServer(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	srv := New(port)
	go srv.ListenAndServe()
	return port
}

// dialConn connects to a running server's port and returns a scanner
// already past the initial "connected" frame.
func dialConn(t *testing.T, port int) (net.Conn, *bufio.Scanner) {
	t.Helper()

	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", "127.0.0.1:"+itoa(port))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())

	var connected ConnectedMessage
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &connected))
	require.Equal(t, MsgConnected, connected.Type)

	return conn, scanner
}

// dialServer starts a fresh server and immediately connects to it; a
// convenience for tests that only need one connection total.
func dialServer(t *testing.T) (net.Conn, *bufio.Scanner) {
	t.Helper()
	return dialConn(t, startTestServer(t))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func packageMiningFrame(prefix string) string {
	req := StartPackageMiningRequest{
		Type:   MsgStartPackageMining,
		Prefix: prefix,
		Sender: "0x01",
		Modules: []string{
			base64.StdEncoding.EncodeToString([]byte{1, 2, 3}),
		},
		GasObject: gasObjectWire{
			ID:      "0x09",
			Version: 3,
			Digest:  "000000000000000000000000000000000000000000000000000000000000000a",
		},
		GasPrice:      1000,
		BaseGasBudget: 5_000_000,
		Workers:       1,
	}
	b, _ := json.Marshal(req)
	return string(b)
}

func TestServer_StartPackageMining_ReportsPackageFound(t *testing.T) {
	conn, scanner := dialServer(t)
	defer conn.Close()

	_, err := conn.Write([]byte(packageMiningFrame("0") + "\n"))
	require.NoError(t, err)

	var sawStarted bool
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && scanner.Scan() {
		var env envelope
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &env))

		switch env.Type {
		case MsgMiningStarted:
			sawStarted = true
		case MsgProgress:
			continue
		case MsgPackageFound:
			assert.True(t, sawStarted)
			return
		case MsgStopped, MsgError:
			t.Fatalf("unexpected terminal frame before a hit: %s", scanner.Text())
		}
	}
	t.Fatal("never received package_found before deadline")
}

func TestServer_RejectsSecondStartWhileJobRunning(t *testing.T) {
	port := startTestServer(t)

	conn, scanner := dialConn(t, port)
	defer conn.Close()

	_, err := conn.Write([]byte(packageMiningFrame("0000000") + "\n"))
	require.NoError(t, err)
	require.True(t, scanner.Scan())

	var started MiningStartedMessage
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &started))
	require.Equal(t, MsgMiningStarted, started.Type)

	conn2, scanner2 := dialConn(t, port)
	defer conn2.Close()
	_, err = conn2.Write([]byte(packageMiningFrame("0000000") + "\n"))
	require.NoError(t, err)
	require.True(t, scanner2.Scan())

	var errMsg ErrorMessage
	require.NoError(t, json.Unmarshal(scanner2.Bytes(), &errMsg))
	assert.Equal(t, MsgError, errMsg.Type)
}

func TestServer_StopMiningWithNoJobReturnsError(t *testing.T) {
	conn, scanner := dialServer(t)
	defer conn.Close()

	_, err := conn.Write([]byte(`{"type":"stop_mining"}` + "\n"))
	require.NoError(t, err)
	require.True(t, scanner.Scan())

	var errMsg ErrorMessage
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &errMsg))
	assert.Equal(t, MsgError, errMsg.Type)
}

func TestServer_UnknownMessageTypeReturnsError(t *testing.T) {
	conn, scanner := dialServer(t)
	defer conn.Close()

	_, err := conn.Write([]byte(`{"type":"not_a_real_type"}` + "\n"))
	require.NoError(t, err)
	require.True(t, scanner.Scan())

	var errMsg ErrorMessage
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &errMsg))
	assert.Equal(t, MsgError, errMsg.Type)
}
