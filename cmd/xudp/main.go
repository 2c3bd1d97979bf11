// XUDPConnections — CLI entry point.
//
// This tool demonstrates connection-oriented sessions over UDP: the listen
// role accepts sessions and echoes every payload back, the connect role
// sends stdin lines and prints whatever arrives. Sessions stay alive
// through the automatic keep-alive exchange and die on idle timeout.
//
// It can be launched interactively (no flags) or non-interactively via CLI
// flags (-role, -port, -addr, -debug).
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/Norimo/XUDPConnections/internal/config"
	"github.com/Norimo/XUDPConnections/internal/util"
	"github.com/Norimo/XUDPConnections/internal/xudp"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags.
	role := flag.String("role", "", "Role: listen or connect")
	port := flag.Int("port", 0, "UDP port to bind (listen role), 1~65535")
	addr := flag.String("addr", "", "Remote address host:port (connect role)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("XUDPConnections — v%s", version))
	pterm.Println()

	cfg := config.Config{Role: config.Role(*role), Port: *port, RemoteAddr: *addr, Debug: *debugMode}

	switch cfg.Role {
	case "":
		// No -role flag → interactive mode.
		runInteractive(ctx)

	case config.RoleListen:
		if cfg.Port < 1 || cfg.Port > 65535 {
			util.LogError("invalid or missing -port (must be 1~65535)")
			os.Exit(1)
		}
		runListen(ctx, cfg.Port)

	case config.RoleConnect:
		if cfg.RemoteAddr == "" {
			util.LogError("missing -addr for connect role")
			os.Exit(1)
		}
		runConnect(ctx, cfg.RemoteAddr)

	default:
		util.LogError("invalid -role: must be 'listen' or 'connect'")
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

// runInteractive falls back to interactive prompts when no -role flag is
// provided.
func runInteractive(ctx context.Context) {
	role, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"Listen  — Accept sessions and echo payloads", "Connect — Open a session to a listener"}).
		WithDefaultText("Select your role").
		Show()

	pterm.Println()

	if strings.HasPrefix(role, "Listen") {
		port := askPort("UDP port to listen on (1 ~ 65535)")
		runListen(ctx, port)
	} else {
		addr := askAddr()
		runConnect(ctx, addr)
	}
}

// runListen starts an acceptor and echoes every received payload back on
// the session it arrived on.
func runListen(ctx context.Context, port int) {
	acceptor, err := xudp.Listen(port)
	if err != nil {
		util.LogError("failed to start acceptor: %v", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		acceptor.Close()
	}()

	util.StartStatsReporter(ctx)
	util.LogInfo("listening on %s — echoing every payload back", acceptor.LocalAddr())

	for {
		sess, err := acceptor.AcceptConnection()
		if err != nil {
			if errors.Is(err, xudp.ErrListenerStopped) {
				util.LogInfo("acceptor stopped")
				return
			}
			util.LogError("accept failed: %v", err)
			return
		}

		util.LogInfo("[%s] session accepted", sess.Endpoint())
		go echoSession(sess)
	}
}

// echoSession drains one accepted session, echoing payloads until it ends.
func echoSession(sess *xudp.Session) {
	for {
		payload, err := sess.Receive()
		if err != nil {
			util.LogInfo("[%s] session ended", sess.Endpoint())
			return
		}

		util.LogDebug("[%s] echoing %d bytes", sess.Endpoint(), len(payload))
		if err := sess.Send(payload); err != nil {
			util.LogWarning("[%s] echo failed: %v", sess.Endpoint(), err)
			return
		}
	}
}

// runConnect opens a session to addr, sends stdin lines and prints whatever
// comes back until the session ends or the user interrupts.
func runConnect(ctx context.Context, addr string) {
	connector := xudp.NewConnector(xudp.DefaultTiming())
	if err := connector.Connect(addr); err != nil {
		util.LogError("failed to connect: %v", err)
		os.Exit(1)
	}
	defer connector.Disconnect()

	go func() {
		<-ctx.Done()
		connector.Disconnect()
	}()

	util.StartStatsReporter(ctx)
	util.LogInfo("session open to %s — type lines to send, Ctrl+C to quit", addr)

	// Print everything the peer sends.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			payload, err := connector.Receive()
			if err != nil {
				if errors.Is(err, io.EOF) {
					util.LogInfo("session ended")
				} else {
					util.LogError("receive failed: %v", err)
				}
				return
			}
			pterm.Println(string(payload))
		}
	}()

	// Forward stdin lines until EOF or the session ends.
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := connector.Send([]byte(line)); err != nil {
			util.LogError("send failed: %v", err)
			break
		}
	}

	connector.Disconnect()
	<-done
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// askPort prompts the user for a port number until a valid one is entered.
func askPort(prompt string) int {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && port >= 1 && port <= 65535 {
			pterm.Println()
			return port
		}

		util.LogWarning("invalid port number: must be 1 ~ 65535")
		pterm.Println()
	}
}

// askAddr prompts the user for a remote address until a valid one is entered.
func askAddr() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Remote address (e.g. 198.51.100.7:5460)").
			Show()

		addr := strings.TrimSpace(raw)
		if _, _, err := net.SplitHostPort(addr); err == nil {
			pterm.Println()
			return addr
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter host:port")
	}
}
