package assets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/HammerMeetNail/plantcare/internal/render"
)

// Manifest holds the mapping of original asset paths to hashed versions
type Manifest struct {
	mu       sync.RWMutex
	assets   map[string]string
	basePath string
}

// NewManifest creates a new asset manifest
func NewManifest(basePath string) *Manifest {
	return &Manifest{
		assets:   make(map[string]string),
		basePath: basePath,
	}
}

// Load reads the manifest.json file
func (m *Manifest) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	manifestPath := filepath.Join(m.basePath, "web", "static", "dist", "manifest.json")

	// #nosec G304 -- manifestPath is constructed from trusted basePath, not user input
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		// If manifest doesn't exist, use original paths (dev mode)
		if os.IsNotExist(err) {
			m.assets = make(map[string]string)
			return nil
		}
		return err
	}

	return json.Unmarshal(data, &m.assets)
}

// Get returns the hashed path for an asset, or the original if not found
func (m *Manifest) Get(path string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if hashed, ok := m.assets[path]; ok {
		return "/static/" + hashed
	}
	// Fallback to original path (dev mode)
	return "/static/" + path
}

// GetCSS returns the hashed path for the main CSS file
func (m *Manifest) GetCSS() string {
	return m.Get("css/styles.css")
}

// GetBackdropJS returns the hashed path for the scroll-scaled backdrop script.
func (m *Manifest) GetBackdropJS() string {
	return m.Get("js/backdrop.js")
}

// GetGuideJS returns the hashed path for the form and progress script.
func (m *Manifest) GetGuideJS() string {
	return m.Get("js/guide.js")
}

// Page returns every asset path the guide page links.
func (m *Manifest) Page() render.Assets {
	return render.Assets{
		CSS:        m.GetCSS(),
		BackdropJS: m.GetBackdropJS(),
		GuideJS:    m.GetGuideJS(),
	}
}
