package fetcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	PlaceholderAddress = "127.0.0.1"
	RequiredMarker     = "apiVersion: v1"
	DefaultOutputPath  = "k3s.yaml"
)

// RewriteAddress replaces every occurrence of placeholder with addr.
func RewriteAddress(text, placeholder, addr string) string {
	if placeholder == "" {
		return text
	}
	return strings.ReplaceAll(text, placeholder, addr)
}

func HasMarker(text string) bool {
	return strings.Contains(text, RequiredMarker)
}

// WriteArtifact replaces path with content. The content is staged in a
// temporary file next to path so a failed write never leaves a partial file.
func WriteArtifact(path, content string) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".kubefetch-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write artifact: %w", err)
	}

	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		return fmt.Errorf("chmod artifact: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), path); err != nil {
		return fmt.Errorf("rename artifact: %w", err)
	}

	return nil
}

func ExportCommand(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return fmt.Sprintf("export KUBECONFIG=%s", path)
}

type kubeconfig struct {
	APIVersion     string `yaml:"apiVersion"`
	Kind           string `yaml:"kind"`
	CurrentContext string `yaml:"current-context"`
	Clusters       []struct {
		Name    string `yaml:"name"`
		Cluster struct {
			Server string `yaml:"server"`
		} `yaml:"cluster"`
	} `yaml:"clusters"`
}

// KubeconfigSummary lists what a kubeconfig points at.
type KubeconfigSummary struct {
	Kind           string
	CurrentContext string
	Servers        []string
}

func InspectKubeconfig(text string) (*KubeconfigSummary, error) {
	var cfg kubeconfig
	if err := yaml.Unmarshal([]byte(text), &cfg); err != nil {
		return nil, fmt.Errorf("parse kubeconfig: %w", err)
	}

	summary := &KubeconfigSummary{
		Kind:           cfg.Kind,
		CurrentContext: cfg.CurrentContext,
	}
	for _, c := range cfg.Clusters {
		if c.Cluster.Server != "" {
			summary.Servers = append(summary.Servers, c.Cluster.Server)
		}
	}

	return summary, nil
}
