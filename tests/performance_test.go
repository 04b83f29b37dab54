//go:build perf

package tests

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmolero/ComandaDB"
	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/db"
	"github.com/jmolero/ComandaDB/ps"
)

// PerfConfig holds configurable test parameters
type PerfConfig struct {
	P99ThresholdMs     int           // COMANDADB_PERF_P99_MS
	TLSOverheadPercent int           // COMANDADB_PERF_TLS_OVERHEAD_PCT
	MaxErrorRate       float64       // COMANDADB_PERF_MAX_ERROR_RATE
	TestDuration       time.Duration // COMANDADB_PERF_DURATION_SEC
}

func loadPerfConfig() PerfConfig {
	cfg := PerfConfig{
		P99ThresholdMs:     50,
		TLSOverheadPercent: 15,
		MaxErrorRate:       0.001, // 0.1%
		TestDuration:       10 * time.Second,
	}

	if v := os.Getenv("COMANDADB_PERF_P99_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.P99ThresholdMs = n
		}
	}
	if v := os.Getenv("COMANDADB_PERF_TLS_OVERHEAD_PCT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TLSOverheadPercent = n
		}
	}
	if v := os.Getenv("COMANDADB_PERF_MAX_ERROR_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxErrorRate = f
		}
	}
	if v := os.Getenv("COMANDADB_PERF_DURATION_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TestDuration = time.Duration(n) * time.Second
		}
	}

	return cfg
}

// PerfMetrics collects performance measurements
type PerfMetrics struct {
	mu            sync.Mutex
	Latencies     []time.Duration
	Errors        int64
	TotalRequests int64
	StartTime     time.Time
	EndTime       time.Time
}

func NewPerfMetrics() *PerfMetrics {
	return &PerfMetrics{
		Latencies: make([]time.Duration, 0, 10000),
		StartTime: time.Now(),
	}
}

func (m *PerfMetrics) Record(latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	if err != nil {
		m.Errors++
	} else {
		m.Latencies = append(m.Latencies, latency)
	}
}

func (m *PerfMetrics) Finalize() {
	m.EndTime = time.Now()
}

func (m *PerfMetrics) P50() time.Duration { return m.percentile(50) }
func (m *PerfMetrics) P95() time.Duration { return m.percentile(95) }
func (m *PerfMetrics) P99() time.Duration { return m.percentile(99) }

func (m *PerfMetrics) percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.Latencies))
	copy(sorted, m.Latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (m *PerfMetrics) Throughput() float64 {
	duration := m.EndTime.Sub(m.StartTime).Seconds()
	if duration == 0 {
		return 0
	}
	return float64(m.TotalRequests) / duration
}

func (m *PerfMetrics) ErrorRate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.Errors) / float64(m.TotalRequests)
}

func (m *PerfMetrics) Print(t *testing.T, clientCount int, duration time.Duration) {
	t.Logf("Performance Results:")
	t.Logf("├── Clients:     %d", clientCount)
	t.Logf("├── Duration:    %s", duration)
	t.Logf("├── Requests:    %d", m.TotalRequests)
	t.Logf("├── Throughput:  %.1f req/s", m.Throughput())
	t.Logf("├── Latency:")
	t.Logf("│   ├── p50:     %s", m.P50())
	t.Logf("│   ├── p95:     %s", m.P95())
	t.Logf("│   └── p99:     %s", m.P99())
	t.Logf("└── Errors:      %d (%.2f%%)", m.Errors, m.ErrorRate()*100)
}

// perfRequest mirrors the server protocol
type perfRequest struct {
	Op     string `json:"op"`
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

type perfResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// perfServer wraps a seeded engine behind the line protocol for load tests
type perfServer struct {
	instance *ComandaDB.Instance
	listener net.Listener
	addr     string
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	tlsConfig *tls.Config
}

func newPerfServer(t *testing.T) *perfServer {
	store, err := ps.NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	instance := ComandaDB.Open(store)
	identity := core.Identity{Name: "perf", Email: "perf@test.com"}
	if err := instance.Initialize(identity); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	// Seed a working set of open orders
	engine := instance.Engine(identity)
	for i := 0; i < 100; i++ {
		result := engine.Run(
			"INSERT INTO orders (table_id, employee_id, status, total) VALUES (?, ?, ?, ?)",
			i%12+1, i%2+1, "pending", float64(i%40))
		if !result.Success {
			t.Fatalf("Seed insert failed: %s", result.Error)
		}
	}

	return &perfServer{
		instance: instance,
		done:     make(chan struct{}),
	}
}

func (s *perfServer) Start(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	go s.acceptLoop()
}

func (s *perfServer) StartTLS(t *testing.T, certFile, keyFile string) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		t.Fatalf("Failed to load TLS cert: %v", err)
	}

	s.tlsConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	listener, err := tls.Listen("tcp", ":0", s.tlsConfig)
	if err != nil {
		t.Fatalf("Failed to start TLS server: %v", err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	go s.acceptLoop()
}

func (s *perfServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.listener.Close()
		s.wg.Wait()
	})
}

func (s *perfServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *perfServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Each connection gets its own engine; the store serializes writes
	engine := s.instance.Engine(core.Identity{Name: "perf", Email: "perf@test.com"})
	reader := bufio.NewReader(conn)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		var req perfRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return
		}

		var result db.Result
		switch req.Op {
		case "run":
			result = engine.Run(req.SQL, req.Params...)
		default:
			result = engine.Query(req.SQL, req.Params...)
		}

		data, _ := json.Marshal(perfResponse{Success: result.Success, Error: result.Error})
		conn.Write(append(data, '\n'))
	}
}

// PerfClient is a simple client for performance testing
type PerfClient struct {
	addr      string
	tlsConfig *tls.Config
}

func NewPerfClient(addr string) *PerfClient {
	return &PerfClient{addr: addr}
}

func NewPerfClientTLS(addr string, tlsConfig *tls.Config) *PerfClient {
	return &PerfClient{addr: addr, tlsConfig: tlsConfig}
}

func (c *PerfClient) Execute(req perfRequest) (time.Duration, error) {
	start := time.Now()

	var conn net.Conn
	var err error

	if c.tlsConfig != nil {
		conn, err = tls.Dial("tcp", c.addr, c.tlsConfig)
	} else {
		conn, err = net.DialTimeout("tcp", c.addr, 5*time.Second)
	}
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		return 0, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return 0, err
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return 0, err
	}

	var resp perfResponse
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("request failed: %s", resp.Error)
	}

	return time.Since(start), nil
}

// TestPerfConcurrentReads tests concurrent query performance
func TestPerfConcurrentReads(t *testing.T) {
	cfg := loadPerfConfig()
	server := newPerfServer(t)
	server.Start(t)
	defer server.Stop()

	const numClients = 50
	metrics := NewPerfMetrics()
	var wg sync.WaitGroup

	done := make(chan struct{})
	go func() {
		time.Sleep(cfg.TestDuration)
		close(done)
	}()

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			client := NewPerfClient(server.addr)

			for {
				select {
				case <-done:
					return
				default:
				}

				req := perfRequest{
					Op:  "query",
					SQL: "SELECT * FROM orders WHERE status IN ('pending', 'preparing', 'ready')",
				}
				latency, err := client.Execute(req)
				metrics.Record(latency, err)
			}
		}(i)
	}

	wg.Wait()
	metrics.Finalize()
	metrics.Print(t, numClients, cfg.TestDuration)

	p99Ms := float64(metrics.P99()) / float64(time.Millisecond)
	if p99Ms > float64(cfg.P99ThresholdMs) {
		t.Errorf("p99 latency %.1fms exceeds threshold %dms", p99Ms, cfg.P99ThresholdMs)
	}
	if metrics.ErrorRate() > cfg.MaxErrorRate {
		t.Errorf("error rate %.2f%% exceeds threshold %.2f%%", metrics.ErrorRate()*100, cfg.MaxErrorRate*100)
	}
}

// TestPerfConcurrentWrites tests concurrent mutation performance
func TestPerfConcurrentWrites(t *testing.T) {
	cfg := loadPerfConfig()
	server := newPerfServer(t)
	server.Start(t)
	defer server.Stop()

	const numClients = 25
	metrics := NewPerfMetrics()
	var wg sync.WaitGroup
	var counter int64

	done := make(chan struct{})
	go func() {
		time.Sleep(cfg.TestDuration)
		close(done)
	}()

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			client := NewPerfClient(server.addr)

			for {
				select {
				case <-done:
					return
				default:
				}

				n := atomic.AddInt64(&counter, 1)
				req := perfRequest{
					Op:     "run",
					SQL:    "INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)",
					Params: []any{n%100 + 1, n%10 + 1, 1, 9.5},
				}
				latency, err := client.Execute(req)
				metrics.Record(latency, err)
			}
		}(i)
	}

	wg.Wait()
	metrics.Finalize()
	metrics.Print(t, numClients, cfg.TestDuration)

	// Write threshold is more lenient
	writeThreshold := cfg.P99ThresholdMs * 2
	p99Ms := float64(metrics.P99()) / float64(time.Millisecond)
	if p99Ms > float64(writeThreshold) {
		t.Errorf("p99 latency %.1fms exceeds threshold %dms", p99Ms, writeThreshold)
	}
	if metrics.ErrorRate() > cfg.MaxErrorRate {
		t.Errorf("error rate %.2f%% exceeds threshold %.2f%%", metrics.ErrorRate()*100, cfg.MaxErrorRate*100)
	}
}

// TestPerfMixedWorkload tests a realistic service mix: mostly reads with a
// steady stream of order updates
func TestPerfMixedWorkload(t *testing.T) {
	cfg := loadPerfConfig()
	server := newPerfServer(t)
	server.Start(t)
	defer server.Stop()

	const numClients = 50
	const readPct = 70
	metrics := NewPerfMetrics()
	var wg sync.WaitGroup
	var counter int64

	done := make(chan struct{})
	go func() {
		time.Sleep(cfg.TestDuration)
		close(done)
	}()

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			client := NewPerfClient(server.addr)

			for {
				select {
				case <-done:
					return
				default:
				}

				var req perfRequest
				if clientID%100 < readPct {
					req = perfRequest{
						Op: "query",
						SQL: `SELECT o.*, t.number as table_number FROM orders o
							LEFT JOIN tables t ON o.table_id = t.id LIMIT 10`,
					}
				} else {
					n := atomic.AddInt64(&counter, 1)
					req = perfRequest{
						Op:     "run",
						SQL:    "UPDATE orders SET status = ? WHERE id = ?",
						Params: []any{"preparing", n%100 + 1},
					}
				}

				latency, err := client.Execute(req)
				metrics.Record(latency, err)
			}
		}(i)
	}

	wg.Wait()
	metrics.Finalize()
	metrics.Print(t, numClients, cfg.TestDuration)

	mixedThreshold := int(float64(cfg.P99ThresholdMs) * 1.5)
	p99Ms := float64(metrics.P99()) / float64(time.Millisecond)
	if p99Ms > float64(mixedThreshold) {
		t.Errorf("p99 latency %.1fms exceeds threshold %dms", p99Ms, mixedThreshold)
	}
	if metrics.ErrorRate() > cfg.MaxErrorRate {
		t.Errorf("error rate %.2f%% exceeds threshold %.2f%%", metrics.ErrorRate()*100, cfg.MaxErrorRate*100)
	}
}

// TestPerfTLSOverhead compares plaintext and TLS round-trip latency
func TestPerfTLSOverhead(t *testing.T) {
	cfg := loadPerfConfig()

	plain := newPerfServer(t)
	plain.Start(t)
	defer plain.Stop()

	certFile, keyFile := generatePerfCerts(t)
	secure := newPerfServer(t)
	secure.StartTLS(t, certFile, keyFile)
	defer secure.Stop()

	req := perfRequest{Op: "query", SQL: "SELECT * FROM products WHERE available = 1"}

	measure := func(client *PerfClient) *PerfMetrics {
		metrics := NewPerfMetrics()
		deadline := time.Now().Add(cfg.TestDuration / 2)
		for time.Now().Before(deadline) {
			latency, err := client.Execute(req)
			metrics.Record(latency, err)
		}
		metrics.Finalize()
		return metrics
	}

	plainMetrics := measure(NewPerfClient(plain.addr))
	secureMetrics := measure(NewPerfClientTLS(secure.addr, &tls.Config{InsecureSkipVerify: true}))

	plainMetrics.Print(t, 1, cfg.TestDuration/2)
	secureMetrics.Print(t, 1, cfg.TestDuration/2)

	plainP50 := float64(plainMetrics.P50())
	secureP50 := float64(secureMetrics.P50())
	if plainP50 == 0 {
		t.Skip("no plaintext samples collected")
	}

	overheadPct := (secureP50 - plainP50) / plainP50 * 100
	t.Logf("TLS p50 overhead: %.1f%%", overheadPct)
	if overheadPct > float64(cfg.TLSOverheadPercent) {
		t.Errorf("TLS overhead %.1f%% exceeds threshold %d%%", overheadPct, cfg.TLSOverheadPercent)
	}
}

func generatePerfCerts(t *testing.T) (certFile, keyFile string) {
	t.Helper()

	tmpDir := t.TempDir()
	certFile = tmpDir + "/cert.pem"
	keyFile = tmpDir + "/key.pem"

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.IPv6loopback},
		DNSNames:     []string{"localhost"},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	certOut, err := os.Create(certFile)
	if err != nil {
		t.Fatalf("Failed to create cert file: %v", err)
	}
	pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	certOut.Close()

	keyOut, err := os.Create(keyFile)
	if err != nil {
		t.Fatalf("Failed to create key file: %v", err)
	}
	pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	keyOut.Close()

	return certFile, keyFile
}
