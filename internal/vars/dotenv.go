package vars

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/unkn0wn-root/restbench/internal/errdef"
)

const dotEnvDefaultName = "default"

// IsDotEnvPath keeps discovery stable by requiring names that intentionally
// look like .env files.
func IsDotEnvPath(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(base, ".json") {
		return false
	}
	return base == ".env" || strings.HasPrefix(base, ".env.") || strings.HasSuffix(base, ".env")
}

// DotEnv is a parsed env file: the derived environment name and its values.
type DotEnv struct {
	Name   string
	Values map[string]string
}

func ReadDotEnv(path string) (DotEnv, error) {
	f, err := os.Open(path)
	if err != nil {
		return DotEnv{}, errdef.Wrap(errdef.CodeFilesystem, err, "open env file %s", path)
	}
	defer f.Close()
	return ParseDotEnv(f, path)
}

// ParseDotEnv supports the usual dotenv syntax including quoting, export
// prefixes and ${VAR} references to earlier keys.
func ParseDotEnv(r io.Reader, path string) (DotEnv, error) {
	values, err := godotenv.Parse(r)
	if err != nil {
		return DotEnv{}, errdef.Wrap(errdef.CodeParse, err, "parse env file %s", path)
	}
	name := deriveDotEnvName(values, path)
	for key := range values {
		if isWorkspaceKey(key) {
			delete(values, key)
		}
	}
	return DotEnv{Name: name, Values: values}, nil
}

func deriveDotEnvName(values map[string]string, path string) string {
	// favor the workspace key so users can rename environments without touching filenames
	if name := workspaceName(values); name != "" {
		return name
	}

	base := filepath.Base(path)
	lower := strings.ToLower(base)
	switch {
	case lower == ".env":
		return dotEnvDefaultName
	case strings.HasPrefix(lower, ".env.") && len(base) > len(".env."):
		return strings.TrimSpace(base[len(".env."):])
	case strings.HasSuffix(lower, ".env") && len(base) > len(".env"):
		return strings.TrimSpace(base[:len(base)-len(".env")])
	}

	stem := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem == "." {
		return dotEnvDefaultName
	}
	return stem
}

func workspaceName(values map[string]string) string {
	for key, value := range values {
		if isWorkspaceKey(key) {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func isWorkspaceKey(key string) bool {
	return strings.EqualFold(strings.TrimSpace(key), "workspace")
}
