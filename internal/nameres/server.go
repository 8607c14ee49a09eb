// Package nameres runs the local DNS answering service that maps the
// synthetic hostnames onto loopback addresses.
package nameres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/crawlkit/origind/internal/errs"
	"github.com/crawlkit/origind/internal/lifecycle"
	"github.com/crawlkit/origind/internal/logging"
	"github.com/crawlkit/origind/internal/metrics"
)

// DefaultIP is the address host entries point at unless the caller says
// otherwise.
const DefaultIP = "127.0.0.1"

// Config controls the DNS listeners and resolver-file handling.
type Config struct {
	// Addr is the listen address for both UDP and TCP, default 127.0.0.1:53.
	Addr string `mapstructure:"addr"`
	// TTL for answered A records, in seconds.
	TTL uint32 `mapstructure:"ttl"`
	// InstallResolvConf points the system resolver at this service while it
	// runs. Skipped in dry-run mode.
	InstallResolvConf bool `mapstructure:"install_resolv_conf"`
	// ResolvConfPath overrides the resolver configuration file location.
	ResolvConfPath string `mapstructure:"resolv_conf_path"`
	// DryRun suppresses resolver-file writes.
	DryRun bool `mapstructure:"-"`
}

// Service answers A-record queries for a mutable hostname table. Entries
// persist until the service stops.
type Service struct {
	cfg    Config
	logger *zap.Logger

	mu    sync.RWMutex
	hosts map[string]net.IP

	tracker   lifecycle.Tracker
	udpServer *dns.Server
	tcpServer *dns.Server
	installed bool
}

// New constructs the service.
func New(cfg Config, logger *zap.Logger) *Service {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:53"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 60
	}
	if cfg.ResolvConfPath == "" {
		cfg.ResolvConfPath = resolvConfPath
	}
	return &Service{
		cfg:    cfg,
		logger: logging.OrNop(logger),
		hosts:  make(map[string]net.IP),
	}
}

// AddHost inserts or overwrites the hostname's entry. Last write wins.
func (s *Service) AddHost(hostname, ip string) (string, string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", "", errs.New(errs.KindNameResolution, "invalid IP %q for host %q", ip, hostname)
	}
	hostname = normalizeName(hostname)

	s.mu.Lock()
	s.hosts[hostname] = parsed
	s.mu.Unlock()

	s.logger.Info("host registered", zap.String("hostname", hostname), zap.String("ip", ip))
	return hostname, ip, nil
}

// AddHostByURL extracts the hostname from rawURL and registers it against ip.
// A URL without a hostname is a configuration error.
func (s *Service) AddHostByURL(rawURL, ip string) (string, string, error) {
	if ip == "" {
		ip = DefaultIP
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", errs.Wrap(errs.KindNameResolution,
			errs.New(errs.KindConfiguration, "parse URL %q: %v", rawURL, err))
	}
	hostname := u.Hostname()
	if hostname == "" {
		return "", "", errs.Wrap(errs.KindNameResolution,
			errs.New(errs.KindConfiguration, "URL %q has no hostname", rawURL))
	}
	return s.AddHost(hostname, ip)
}

// Addr returns the bound UDP listen address, valid once Start has succeeded.
func (s *Service) Addr() string {
	if s.udpServer == nil || s.udpServer.PacketConn == nil {
		return ""
	}
	return s.udpServer.PacketConn.LocalAddr().String()
}

// Lookup returns the registered IP for hostname, if any.
func (s *Service) Lookup(hostname string) (net.IP, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ip, ok := s.hosts[normalizeName(hostname)]
	return ip, ok
}

// Start binds the UDP and TCP listeners. Either bind failing is fatal.
func (s *Service) Start(_ context.Context) error {
	pc, err := net.ListenPacket("udp", s.cfg.Addr)
	if err != nil {
		return errs.Wrap(errs.KindNameResolution, fmt.Errorf("listen udp %s: %w", s.cfg.Addr, err))
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		pc.Close() //nolint:errcheck
		return errs.Wrap(errs.KindNameResolution, fmt.Errorf("listen tcp %s: %w", s.cfg.Addr, err))
	}
	if !s.tracker.MarkRunning() {
		pc.Close() //nolint:errcheck
		ln.Close() //nolint:errcheck
		return errs.New(errs.KindNameResolution, "name resolution service already %s", s.tracker.State())
	}

	handler := dns.HandlerFunc(s.handle)
	s.udpServer = &dns.Server{PacketConn: pc, Handler: handler}
	s.tcpServer = &dns.Server{Listener: ln, Handler: handler}

	go s.serveLoop(s.udpServer, "udp")
	go s.serveLoop(s.tcpServer, "tcp")

	if s.cfg.InstallResolvConf {
		if err := s.installResolvConf(); err != nil {
			s.logger.Warn("resolver configuration not installed", zap.Error(err))
		} else {
			s.installed = true
		}
	}

	metrics.ObserveTransition("nameres", "start")
	s.logger.Info("name resolution service started", zap.String("addr", s.cfg.Addr))
	return nil
}

func (s *Service) serveLoop(srv *dns.Server, proto string) {
	if err := srv.ActivateAndServe(); err != nil {
		// Shutdown closes the listener out from under ActivateAndServe, so a
		// post-stop error is expected noise.
		if s.tracker.State() == lifecycle.StateRunning {
			s.logger.Error("dns serve loop failed", zap.String("proto", proto), zap.Error(err))
		}
	}
}

// Stop closes both listeners and restores any resolver configuration the
// service installed. Idempotent. No drain is needed: UDP queries are
// fire-and-forget.
func (s *Service) Stop(ctx context.Context) error {
	if !s.tracker.MarkStopped() {
		return nil
	}

	var first error
	for _, srv := range []*dns.Server{s.udpServer, s.tcpServer} {
		if srv == nil {
			continue
		}
		if err := srv.ShutdownContext(ctx); err != nil && first == nil {
			first = errs.Wrap(errs.KindCleanup, fmt.Errorf("shutdown dns listener: %w", err))
		}
	}

	if s.installed {
		if err := s.removeResolvConf(); err != nil && first == nil {
			first = err
		}
	}

	metrics.ObserveTransition("nameres", "stop")
	s.logger.Info("name resolution service stopped")
	return first
}

func (s *Service) handle(w dns.ResponseWriter, req *dns.Msg) {
	reply := new(dns.Msg)
	reply.SetReply(req)
	reply.Authoritative = true

	if len(req.Question) != 1 {
		reply.SetRcode(req, dns.RcodeNotImplemented)
		s.write(w, reply, "not_implemented")
		return
	}

	q := req.Question[0]
	if q.Qclass != dns.ClassINET || q.Qtype != dns.TypeA {
		reply.SetRcode(req, dns.RcodeNotImplemented)
		s.write(w, reply, "not_implemented")
		return
	}

	ip, ok := s.Lookup(q.Name)
	if !ok {
		reply.SetRcode(req, dns.RcodeNameError)
		s.write(w, reply, "nxdomain")
		return
	}

	reply.Answer = append(reply.Answer, &dns.A{
		Hdr: dns.RR_Header{
			Name:   q.Name,
			Rrtype: dns.TypeA,
			Class:  dns.ClassINET,
			Ttl:    s.cfg.TTL,
		},
		A: ip.To4(),
	})
	s.write(w, reply, "answered")
}

func (s *Service) write(w dns.ResponseWriter, reply *dns.Msg, result string) {
	metrics.ObserveQuery(result)
	if err := w.WriteMsg(reply); err != nil {
		s.logger.Debug("dns write failed", zap.Error(err))
	}
}

func normalizeName(hostname string) string {
	return strings.ToLower(strings.TrimSuffix(hostname, "."))
}
