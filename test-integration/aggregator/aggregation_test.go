package integration

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/toolhive-transform-registry/internal/config"
	"github.com/stacklok/toolhive-transform-registry/internal/status"
	"github.com/stacklok/toolhive-transform-registry/test-integration/aggregator/helpers"
)

const (
	imagemagickEngine = `{
		"transformOptions": {
			"imagemagickOptions": [
				{"value": {"name": "resizeWidth"}},
				{"group": {"transformOptions": [{"value": {"name": "cropGravity"}}]}}
			]
		},
		"transformers": [{
			"transformerName": "imagemagick",
			"supportedSourceAndTargetList": [{"sourceMediaType": "image/jpeg", "targetMediaType": "image/png"}],
			"transformOptions": ["imagemagickOptions"]
		}]
	}`

	pdfRendererEngine = `{
		"transformers": [{
			"transformerName": "pdfRenderer",
			"supportedSourceAndTargetList": [{"sourceMediaType": "application/pdf", "targetMediaType": "image/png"}]
		}]
	}`

	localPipelines = `{
		"transformers": [
			{"transformerName": "pdfToJpeg", "transformerPipeline": [
				{"transformerName": "pdfToPng", "targetMediaType": "image/png"},
				{"transformerName": "imagemagick"}
			]},
			{"transformerName": "pdfToPng", "transformerPipeline": [
				{"transformerName": "pdfRenderer", "targetMediaType": "image/png"},
				{"transformerName": "imagemagick"}
			]}
		]
	}`
)

var _ = Describe("Transform Registry Aggregation", Label("aggregation"), func() {
	var (
		tempDir      string
		imagemagick  *helpers.FakeEngine
		pdfRenderer  *helpers.FakeEngine
		serverHelper *helpers.ServerTestHelper
	)

	start := func(cfg *config.Config) {
		var err error
		serverHelper, err = helpers.NewServerTestHelper(ctx, helpers.WriteConfigYAML(tempDir, cfg))
		Expect(err).NotTo(HaveOccurred())
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "transform-registry-")
		Expect(err).NotTo(HaveOccurred())

		imagemagick = helpers.NewFakeEngine(imagemagickEngine)
		pdfRenderer = helpers.NewFakeEngine(pdfRendererEngine)
	})

	AfterEach(func() {
		if serverHelper != nil {
			Expect(serverHelper.StopServer()).To(Succeed())
			serverHelper = nil
		}
		imagemagick.Close()
		pdfRenderer.Close()
		_ = os.RemoveAll(tempDir)
	})

	Context("with engines and local pipelines", func() {
		BeforeEach(func() {
			local := helpers.WriteFile(tempDir, "transforms/pipelines.json", localPipelines)
			start(&config.Config{
				RegistryName: "acs",
				LocalPaths:   []string{filepath.Dir(local)},
				Engines: []config.EngineConfig{
					{URLs: []string{imagemagick.URL(), pdfRenderer.URL()}},
				},
				Status: &config.StatusConfig{Path: filepath.Join(tempDir, "status")},
			})
		})

		It("should register every transformer after the transformers it references", func() {
			Expect(serverHelper.TransformerNames()).To(Equal(
				[]string{"imagemagick", "pdfRenderer", "pdfToPng", "pdfToJpeg"}))
		})

		It("should serve the merged option sets", func() {
			doc := serverHelper.GetTransformConfig()
			Expect(doc.TransformOptions).To(HaveKey("imagemagickOptions"))
			Expect(doc.TransformOptions["imagemagickOptions"]).To(HaveLen(2))
		})

		It("should summarize the run", func() {
			info := serverHelper.GetInfo()
			Expect(info.Name).To(Equal("acs"))
			Expect(info.EngineCount).To(Equal(2))
			Expect(info.DocumentCount).To(Equal(3))
			Expect(info.TransformerCount).To(Equal(4))
			Expect(info.UnresolvedCount).To(BeZero())
		})

		It("should record where each transformer was read from", func() {
			code, body := serverHelper.Get("/v0/transformers/imagemagick")
			Expect(code).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring("T-Engine on " + imagemagick.URL()))

			code, body = serverHelper.Get("/v0/transformers/pdfToJpeg")
			Expect(code).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring("pipelines.json"))

			code, _ = serverHelper.Get("/v0/transformers/tika")
			Expect(code).To(Equal(http.StatusNotFound))
		})

		It("should persist a complete run status", func() {
			Eventually(func() status.RunPhase {
				return serverHelper.LoadStatus("acs").Phase
			}, 5*time.Second, 50*time.Millisecond).Should(Equal(status.RunPhaseComplete))
		})
	})

	Context("when a referenced transformer is missing", func() {
		It("should keep the pipeline and report it as unresolved", func() {
			local := helpers.WriteFile(tempDir, "pipelines.json", localPipelines)
			start(&config.Config{
				LocalPaths: []string{local},
				Engines:    []config.EngineConfig{{URLs: []string{imagemagick.URL()}}},
				Status:     &config.StatusConfig{Path: filepath.Join(tempDir, "status")},
			})

			Expect(serverHelper.TransformerNames()).To(ConsistOf("imagemagick", "pdfToPng", "pdfToJpeg"))
			Expect(serverHelper.GetInfo().UnresolvedCount).To(Equal(2))

			code, body := serverHelper.Get("/v0/transformers?unresolved=true")
			Expect(code).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring(`"count":2`))
		})
	})

	Context("with a refresh interval", func() {
		BeforeEach(func() {
			start(&config.Config{
				RegistryName: "refreshing",
				Engines:      []config.EngineConfig{{URLs: []string{imagemagick.URL()}}},
				Refresh:      &config.RefreshConfig{Interval: "1s"},
				Status:       &config.StatusConfig{Path: filepath.Join(tempDir, "status")},
			})
		})

		It("should publish the transformers an engine adds", func() {
			imagemagick.Respond(http.StatusOK, `{"transformers": [
				{"transformerName": "imagemagick"},
				{"transformerName": "imagemagickThumbnail"}
			]}`)

			Eventually(serverHelper.TransformerNames, 10*time.Second, 100*time.Millisecond).
				Should(Equal([]string{"imagemagick", "imagemagickThumbnail"}))
		})

		It("should keep serving the last registry while the engine is down", func() {
			imagemagick.Respond(http.StatusServiceUnavailable, `{"message": "restarting"}`)

			Eventually(func() status.RunPhase {
				return serverHelper.LoadStatus("refreshing").Phase
			}, 10*time.Second, 100*time.Millisecond).Should(Equal(status.RunPhaseFailed))

			Expect(serverHelper.TransformerNames()).To(Equal([]string{"imagemagick"}))
			Expect(serverHelper.LoadStatus("refreshing").LastSuccess).NotTo(BeNil())
		})
	})

	Context("when registries are chained", func() {
		It("should read another registry like a transform engine", func() {
			start(&config.Config{
				RegistryName: "upstream",
				Engines:      []config.EngineConfig{{URLs: []string{imagemagick.URL(), pdfRenderer.URL()}}},
				Status:       &config.StatusConfig{Path: filepath.Join(tempDir, "status-upstream")},
			})
			upstream := serverHelper

			downstreamDir := filepath.Join(tempDir, "downstream")
			Expect(os.MkdirAll(downstreamDir, 0750)).To(Succeed())
			downstream, err := helpers.NewServerTestHelper(ctx, helpers.WriteConfigYAML(downstreamDir, &config.Config{
				RegistryName: "downstream",
				Engines:      []config.EngineConfig{{Type: "Transform Registry", URLs: []string{upstream.BaseURL()}}},
				Status:       &config.StatusConfig{Path: filepath.Join(tempDir, "status-downstream")},
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(downstream.StartServer()).To(Succeed())
			defer func() {
				Expect(downstream.StopServer()).To(Succeed())
			}()
			downstream.WaitForServerReady(10 * time.Second)

			Expect(downstream.TransformerNames()).To(Equal(upstream.TransformerNames()))
			Expect(downstream.GetInfo().EngineCount).To(Equal(1))
		})
	})

	Context("when every source fails on the first run", func() {
		It("should never become ready", func() {
			imagemagick.Respond(http.StatusInternalServerError, "")

			var err error
			serverHelper, err = helpers.NewServerTestHelper(ctx, helpers.WriteConfigYAML(tempDir, &config.Config{
				RegistryName: "broken",
				Engines:      []config.EngineConfig{{URLs: []string{imagemagick.URL()}}},
				Status:       &config.StatusConfig{Path: filepath.Join(tempDir, "status")},
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(serverHelper.StartServer()).To(Succeed())

			Eventually(func() int {
				code, _ := serverHelper.Get("/health")
				return code
			}, 5*time.Second, 50*time.Millisecond).Should(Equal(http.StatusOK))

			Eventually(func() status.RunPhase {
				return serverHelper.LoadStatus("broken").Phase
			}, 5*time.Second, 50*time.Millisecond).Should(Equal(status.RunPhaseFailed))

			code, _ := serverHelper.Get("/readiness")
			Expect(code).To(Equal(http.StatusServiceUnavailable))
			code, _ = serverHelper.Get("/transform/config")
			Expect(code).To(Equal(http.StatusServiceUnavailable))
		})
	})
})
