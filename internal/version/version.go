package version

import (
	"encoding/json"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Version is set at build time with -ldflags "-X .../internal/version.Version=1.2.3".
var Version = ""

type Info struct {
	Version string `json:"version"`
}

// Load reports the linked-in version, else the one in path, else 0.0.0.
func Load(path string, logger hclog.Logger) Info {
	if Version != "" {
		return Info{Version: Version}
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("no version file", "path", path, "error", err)
		return Info{Version: "0.0.0"}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil || info.Version == "" {
		logger.Warn("could not parse version file", "path", path, "error", err)
		return Info{Version: "0.0.0"}
	}
	return info
}
