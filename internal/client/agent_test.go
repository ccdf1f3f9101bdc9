package client

import (
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
	"github.com/Gustavo0x1/Dmaster-sub000/internal/initiative"
	"github.com/Gustavo0x1/Dmaster-sub000/internal/relay"
	"github.com/Gustavo0x1/Dmaster-sub000/internal/server"
)

// testRelay поднимает полный стек: relay-цикл + HTTP/WS слой на httptest.
func testRelay(t *testing.T) (wsURL string) {
	t.Helper()

	svc := relay.NewService(nil, nil)
	svc.Start()
	t.Cleanup(svc.Stop)

	srv := httptest.NewServer(server.New(svc, "0").Router())
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func startAgent(t *testing.T, wsURL string, tracker *initiative.Tracker) (*Agent, *ViewState) {
	t.Helper()

	state := NewViewState()
	a := NewAgent(wsURL, state, tracker)
	a.SetReconnectPolicy(ReconnectPolicy{Delay: 50 * time.Millisecond})
	a.Start()
	t.Cleanup(a.Stop)
	return a, state
}

// waitFor опрашивает условие до дедлайна.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func TestAgentReceivesSnapshotOnConnect(t *testing.T) {
	wsURL := testRelay(t)
	_, state := startAgent(t, wsURL, nil)

	waitFor(t, "initial snapshot", func() bool {
		return state.Scenario(domain.DefaultScenarioID) != nil
	})
}

func TestMoveObservedByOtherClient(t *testing.T) {
	wsURL := testRelay(t)

	agentA, stateA := startAgent(t, wsURL, nil)
	_, stateB := startAgent(t, wsURL, nil)

	waitFor(t, "A snapshot", func() bool { return stateA.Scenario(domain.DefaultScenarioID) != nil })
	waitFor(t, "B snapshot", func() bool { return stateB.Scenario(domain.DefaultScenarioID) != nil })

	// A заводит токен 7 и двигает его на (3,4); B ничего не отправляет
	agentA.PushScenario(domain.Scenario{
		ID:     domain.DefaultScenarioID,
		Tokens: []domain.Token{{ID: 7, GridX: 0, GridY: 0, WidthCells: 1, HeightCells: 1}},
		MapRef: "map-1",
	})
	waitFor(t, "B sees token 7", func() bool {
		sc := stateB.Scenario(domain.DefaultScenarioID)
		return sc != nil && sc.FindToken(7) != nil
	})

	agentA.RequestTokenMove(7, 3, 4, domain.LayerCharacters)

	waitFor(t, "B sees move (3,4)", func() bool {
		sc := stateB.Scenario(domain.DefaultScenarioID)
		if sc == nil {
			return false
		}
		tok := sc.FindToken(7)
		return tok != nil && tok.GridX == 3 && tok.GridY == 4
	})
}

func TestChatOptimisticEchoNotDuplicated(t *testing.T) {
	wsURL := testRelay(t)

	agentA, stateA := startAgent(t, wsURL, nil)
	_, stateB := startAgent(t, wsURL, nil)

	waitFor(t, "A snapshot", func() bool { return stateA.Scenario(domain.DefaultScenarioID) != nil })
	waitFor(t, "B snapshot", func() bool { return stateB.Scenario(domain.DefaultScenarioID) != nil })

	agentA.SendChatMessage("hello", 5, "Alice", "a.png")

	// Сообщение видно локально сразу (оптимистичное эхо)
	if got := stateA.Chat(); len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("optimistic echo missing: %+v", got)
	}

	// B получает рассылку
	waitFor(t, "B sees chat", func() bool { return len(stateB.Chat()) == 1 })

	// Серверное эхо не должно дать A вторую копию
	time.Sleep(200 * time.Millisecond)
	if got := stateA.Chat(); len(got) != 1 {
		t.Errorf("chat at A has %d copies of hello, want exactly 1: %+v", len(got), got)
	}
}

func TestReconnectResyncsToServerState(t *testing.T) {
	wsURL := testRelay(t)

	agentA, stateA := startAgent(t, wsURL, nil)
	waitFor(t, "A snapshot", func() bool { return stateA.Scenario(domain.DefaultScenarioID) != nil })

	agentA.PushScenario(domain.Scenario{
		ID:     domain.DefaultScenarioID,
		Tokens: []domain.Token{{ID: 1, GridX: 1, GridY: 1, WidthCells: 1, HeightCells: 1}},
	})
	waitFor(t, "A sees own push", func() bool {
		sc := stateA.Scenario(domain.DefaultScenarioID)
		return sc != nil && sc.FindToken(1) != nil
	})

	// B подключается позже, пропустив все предыдущие рассылки, но стартовый
	// снимок приводит его к текущему состоянию сервера
	_, stateB := startAgent(t, wsURL, nil)
	waitFor(t, "late joiner resynced", func() bool {
		sc := stateB.Scenario(domain.DefaultScenarioID)
		if sc == nil {
			return false
		}
		tok := sc.FindToken(1)
		return tok != nil && tok.GridX == 1
	})

}

func TestDisconnectCallbackFires(t *testing.T) {
	wsURL := testRelay(t)

	state := NewViewState()
	a := NewAgent(wsURL, state, nil)
	a.SetReconnectPolicy(ReconnectPolicy{Delay: 50 * time.Millisecond})

	dropped := make(chan struct{}, 1)
	a.OnDisconnect = func() {
		select {
		case dropped <- struct{}{}:
		default:
		}
	}

	a.Start()
	waitFor(t, "snapshot", func() bool { return state.Scenario(domain.DefaultScenarioID) != nil })

	a.Stop()

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect not fired after connection loss")
	}
}

func TestInitiativeMirroredBetweenClients(t *testing.T) {
	wsURL := testRelay(t)

	trackerA := initiative.NewTracker(1)
	trackerB := initiative.NewTracker(2)

	agentA, stateA := startAgent(t, wsURL, trackerA)
	_, stateB := startAgent(t, wsURL, trackerB)
	trackerA.OnChanged = agentA.PushInitiative

	waitFor(t, "A snapshot", func() bool { return stateA.Scenario(domain.DefaultScenarioID) != nil })
	waitFor(t, "B snapshot", func() bool { return stateB.Scenario(domain.DefaultScenarioID) != nil })

	trackerA.Add(domain.Combatant{TokenID: 1, Initiative: 20, Name: "Goblin"})
	trackerA.Add(domain.Combatant{TokenID: 2, Initiative: 30, Name: "Fighter"})

	waitFor(t, "B mirrors combatants", func() bool {
		order := trackerB.InTurnOrder()
		return len(order) == 2 && order[0].TokenID == 2
	})
}

// flakyProxy - TCP-посредник между агентом и сервером. drop рвет активные
// линки, не трогая listener: для агента это выглядит как обрыв сети,
// после которого тот же адрес снова доступен.
type flakyProxy struct {
	ln      net.Listener
	backend string

	mu    sync.Mutex
	conns []net.Conn
}

func newFlakyProxy(t *testing.T, backend string) *flakyProxy {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("proxy listen: %v", err)
	}
	p := &flakyProxy{ln: ln, backend: backend}
	go p.serve()
	t.Cleanup(func() {
		ln.Close()
		p.drop()
	})
	return p
}

func (p *flakyProxy) serve() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		upstream, err := net.Dial("tcp", p.backend)
		if err != nil {
			conn.Close()
			continue
		}
		p.mu.Lock()
		p.conns = append(p.conns, conn, upstream)
		p.mu.Unlock()
		go func() {
			_, _ = io.Copy(upstream, conn)
			upstream.Close()
		}()
		go func() {
			_, _ = io.Copy(conn, upstream)
			conn.Close()
		}()
	}
}

func (p *flakyProxy) drop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		c.Close()
	}
	p.conns = nil
}

func (p *flakyProxy) url() string {
	return "ws://" + p.ln.Addr().String() + "/ws"
}

func TestReconnectAfterConnectionLoss(t *testing.T) {
	wsURL := testRelay(t)
	backend := strings.TrimSuffix(strings.TrimPrefix(wsURL, "ws://"), "/ws")
	proxy := newFlakyProxy(t, backend)

	// A ходит через посредника, B - напрямую
	policy := ReconnectPolicy{Delay: 50 * time.Millisecond}
	stateA := NewViewState()
	agentA := NewAgent(proxy.url(), stateA, nil)
	agentA.SetReconnectPolicy(policy)

	var lostAt time.Time
	dropped := make(chan struct{})
	agentA.OnDisconnect = func() {
		if lostAt.IsZero() {
			lostAt = time.Now()
			close(dropped)
		}
	}
	agentA.Start()
	t.Cleanup(agentA.Stop)

	agentB, stateB := startAgent(t, wsURL, nil)
	waitFor(t, "A snapshot", func() bool { return stateA.Scenario(domain.DefaultScenarioID) != nil })
	waitFor(t, "B snapshot", func() bool { return stateB.Scenario(domain.DefaultScenarioID) != nil })

	proxy.drop()
	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("agent did not notice connection loss")
	}

	// Пока A в обрыве, B мутирует серверное состояние
	agentB.PushScenario(domain.Scenario{
		ID:     domain.DefaultScenarioID,
		Tokens: []domain.Token{{ID: 42, GridX: 8, GridY: 9, WidthCells: 1, HeightCells: 1}},
	})
	waitFor(t, "server accepted update during outage", func() bool {
		sc := stateB.Scenario(domain.DefaultScenarioID)
		return sc != nil && sc.FindToken(42) != nil
	})

	// A переподключается сам и стартовый снимок приводит его к серверу
	waitFor(t, "A resynced after reconnect", func() bool {
		sc := stateA.Scenario(domain.DefaultScenarioID)
		if sc == nil {
			return false
		}
		tok := sc.FindToken(42)
		return tok != nil && tok.GridX == 8 && tok.GridY == 9
	})

	if waited := time.Since(lostAt); waited < policy.Delay {
		t.Errorf("resync after %v, want at least the policy delay %v", waited, policy.Delay)
	}
}
