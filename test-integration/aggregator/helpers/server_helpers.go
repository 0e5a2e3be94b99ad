package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/onsi/gomega"

	registryapp "github.com/stacklok/toolhive-transform-registry/internal/app"
	"github.com/stacklok/toolhive-transform-registry/internal/config"
	"github.com/stacklok/toolhive-transform-registry/internal/registry"
	"github.com/stacklok/toolhive-transform-registry/internal/status"
	"github.com/stacklok/toolhive-transform-registry/internal/transform"
)

// ServerTestHelper manages the transform registry server lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	address    string
	httpClient *http.Client
	app        *registryapp.RegistryApp
	errCh      chan error
}

// NewServerTestHelper creates a helper for the configuration at configPath, listening on a free port
func NewServerTestHelper(ctx context.Context, configPath string) (*ServerTestHelper, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to find a free port: %w", err)
	}
	address := l.Addr().String()
	if err := l.Close(); err != nil {
		return nil, err
	}

	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		address:    address,
		baseURL:    "http://" + address,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		errCh:      make(chan error, 1),
	}, nil
}

// BaseURL returns the server base URL
func (s *ServerTestHelper) BaseURL() string {
	return s.baseURL
}

// StartServer loads the configuration and starts the server in the background
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := registryapp.NewRegistryApp(s.ctx,
		registryapp.WithConfig(cfg),
		registryapp.WithAddress(s.address),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	s.app = app

	go func() {
		s.errCh <- app.Start()
	}()
	return nil
}

// StopServer stops the server and waits for Start to return
func (s *ServerTestHelper) StopServer() error {
	if s.app == nil {
		return nil
	}
	if err := s.app.Stop(5 * time.Second); err != nil {
		return err
	}
	select {
	case err := <-s.errCh:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("server did not stop")
	}
}

// WaitForServerReady waits until the first registry is published
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() int {
		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return 0
		}
		_ = resp.Body.Close()
		return resp.StatusCode
	}, timeout, 50*time.Millisecond).Should(gomega.Equal(http.StatusOK))
}

// Get performs a GET request and returns the status code and body
func (s *ServerTestHelper) Get(path string) (int, []byte) {
	resp, err := s.httpClient.Get(s.baseURL + path)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return resp.StatusCode, body
}

// GetTransformConfig returns the aggregated transform configuration document
func (s *ServerTestHelper) GetTransformConfig() transform.Config {
	code, body := s.Get("/transform/config")
	gomega.Expect(code).To(gomega.Equal(http.StatusOK), string(body))

	var doc transform.Config
	gomega.Expect(json.Unmarshal(body, &doc)).To(gomega.Succeed())
	return doc
}

// GetInfo returns the summary of the published registry
func (s *ServerTestHelper) GetInfo() registry.Info {
	code, body := s.Get("/v0/info")
	gomega.Expect(code).To(gomega.Equal(http.StatusOK), string(body))

	var info registry.Info
	gomega.Expect(json.Unmarshal(body, &info)).To(gomega.Succeed())
	return info
}

// TransformerNames returns the transformer names of the served document, in order
func (s *ServerTestHelper) TransformerNames() []string {
	doc := s.GetTransformConfig()
	names := make([]string, 0, len(doc.Transformers))
	for _, t := range doc.Transformers {
		names = append(names, t.TransformerName)
	}
	return names
}

// LoadStatus returns the persisted run status of registryName
func (s *ServerTestHelper) LoadStatus(registryName string) *status.RunStatus {
	cfg := s.app.GetConfig()
	runStatus, err := status.NewFileStatusPersistence(cfg.GetStatusPath()).LoadStatus(s.ctx, registryName)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return runStatus
}
