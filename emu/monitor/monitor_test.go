package monitor

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/etsoc/shiresim/command/command"
	"github.com/etsoc/shiresim/emu/hart"
	"github.com/etsoc/shiresim/emu/memory"
	"github.com/etsoc/shiresim/emu/pma"
	"github.com/etsoc/shiresim/emu/runtime"
	"github.com/etsoc/shiresim/emu/system"
)

func newTestTarget(t *testing.T) *command.Target {
	t.Helper()
	mem := memory.NewMainMemory()
	mem.AddRegion(memory.NewDenseRegion("dram", pma.DRAMBase, 0x0010_0000, false))
	sys := system.New(1, pma.NewETSOC1(), mem, nil)
	sys.ColdReset(0)
	h := sys.HartAt(0, 0, 0, 0)
	h.PC = pma.DRAMBase
	h.Life = hart.Running
	return &command.Target{Sys: sys, Sch: runtime.New(sys)}
}

func TestServerServesOneCommand(t *testing.T) {
	srv, err := Start("127.0.0.1:0", newTestTarget(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	conn, err := net.DialTimeout("tcp", srv.listener.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	if _, err := reader.ReadString('\n'); err != nil {
		t.Fatalf("reading banner: %v", err)
	}

	conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write([]byte("deposit x1 7\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := conn.Write([]byte("quit\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 && string(buf[:n]) != "" {
			// Drain until the peer closes the connection after quit.
		}
		if err != nil {
			break
		}
	}
}

func TestServerStopWithNoConnections(t *testing.T) {
	srv, err := Start("127.0.0.1:0", newTestTarget(t))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	srv.Stop()
}
