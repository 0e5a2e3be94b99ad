package helpers

import (
	"os"
	"path/filepath"

	"github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-transform-registry/internal/config"
)

// WriteConfigYAML writes cfg as config.yaml in dir and returns its path
func WriteConfigYAML(dir string, cfg *config.Config) string {
	data, err := yaml.Marshal(cfg)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	path := filepath.Join(dir, "config.yaml")
	gomega.Expect(os.WriteFile(path, data, 0600)).To(gomega.Succeed())
	return path
}

// WriteFile writes content to name in dir and returns its path
func WriteFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	gomega.Expect(os.MkdirAll(filepath.Dir(path), 0750)).To(gomega.Succeed())
	gomega.Expect(os.WriteFile(path, []byte(content), 0600)).To(gomega.Succeed())
	return path
}
