package wsfile

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/wsterm/internal/errdef"
)

const defaultHandshakeTimeout = 10 * time.Second

// Load reads a workspace document. Requests without an id get a stable one
// assigned in memory so jars and history can address them; the file itself is
// left untouched until Save.
func Load(path string) (*Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read workspace %s", path)
	}
	ws, err := Parse(data)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "parse workspace %s", path)
	}
	ws.Path = filepath.Clean(path)
	return ws, nil
}

func Parse(data []byte) (*Workspace, error) {
	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, err
	}
	normalize(&ws)
	return &ws, nil
}

func Save(ws *Workspace, path string) error {
	if ws == nil {
		return errdef.New(errdef.CodeParse, "workspace is nil")
	}
	data, err := yaml.Marshal(ws)
	if err != nil {
		return errdef.Wrap(errdef.CodeParse, err, "encode workspace")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create workspace dir")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write workspace tmp")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace workspace file")
	}
	return nil
}

// New builds an in-memory workspace with a single blank request, used when
// wsterm starts without a file argument.
func New(name string) *Workspace {
	if strings.TrimSpace(name) == "" {
		name = "scratch"
	}
	ws := &Workspace{
		ID:   uuid.NewString(),
		Name: name,
		Requests: []*Request{
			{ID: uuid.NewString(), Name: "new connection"},
		},
	}
	normalize(ws)
	return ws
}

func normalize(ws *Workspace) {
	if ws.ID == "" {
		ws.ID = uuid.NewString()
	}
	if strings.TrimSpace(ws.Name) == "" {
		ws.Name = "workspace"
	}
	for _, req := range ws.Requests {
		if req == nil {
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		if strings.TrimSpace(req.Name) == "" {
			req.Name = req.URL
		}
		if req.Options.HandshakeTimeout <= 0 {
			req.Options.HandshakeTimeout = defaultHandshakeTimeout
		}
	}
}
