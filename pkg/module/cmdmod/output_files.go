package cmdmod

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/PackeTsar/autoshell/pkg/hosts"
)

// outputFiles manages the static and per-host-templated output file
// paths a cmd run writes to, matching cmd.py's output_files class. Static
// paths are shared across every host; per-host paths are rendered once
// per host via text/template (the stdlib substitute for cmd.py's Jinja2
// dependency — no templating library appears anywhere in the retrieved
// pack, so this is the one stdlib-only piece of this module, documented
// in DESIGN.md).
type outputFiles struct {
	staticPaths  []string
	perHostPaths []string

	mu      sync.Mutex
	files   map[string]*os.File
	hostMap map[*hosts.Host][]*os.File
}

func newOutputFiles(staticPaths, perHostPaths []string) *outputFiles {
	return &outputFiles{
		staticPaths:  staticPaths,
		perHostPaths: perHostPaths,
		files:        make(map[string]*os.File),
		hostMap:      make(map[*hosts.Host][]*os.File),
	}
}

func (o *outputFiles) getFile(path string) *os.File {
	o.mu.Lock()
	defer o.mu.Unlock()

	if f, ok := o.files[path]; ok {
		return f
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	o.files[path] = f
	return f
}

func (o *outputFiles) buildHostFiles(host *hosts.Host) []*os.File {
	var out []*os.File
	for _, path := range o.staticPaths {
		if f := o.getFile(path); f != nil {
			out = append(out, f)
		}
	}
	for _, tmplPath := range o.perHostPaths {
		rendered, err := renderHostPath(host, tmplPath)
		if err != nil {
			continue
		}
		if f := o.getFile(rendered); f != nil {
			out = append(out, f)
		}
	}
	return out
}

func renderHostPath(host *hosts.Host, tmplPath string) (string, error) {
	tmpl, err := template.New("path").Parse(tmplPath)
	if err != nil {
		return "", err
	}
	data := map[string]interface{}{
		"now":      time.Now(),
		"hostname": host.Hostname(),
		"address":  firstAddress(host),
	}
	for k, v := range host.Info {
		data[k] = v
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// write appends output to every file path assigned to host, building the
// assignment once per host and caching it for subsequent calls.
func (o *outputFiles) write(host *hosts.Host, output string) {
	o.mu.Lock()
	files, ok := o.hostMap[host]
	o.mu.Unlock()
	if !ok {
		files = o.buildHostFiles(host)
		o.mu.Lock()
		o.hostMap[host] = files
		o.mu.Unlock()
	}
	for _, f := range files {
		f.WriteString(output)
	}
}

// closeAll closes every opened output file.
func (o *outputFiles) closeAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, f := range o.files {
		f.Close()
	}
}
