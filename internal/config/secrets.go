package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const apiTokenEnv = "MATHBLAST_API_TOKEN"

func secretsFilePath(dataDir string) string {
	return filepath.Join(dataDir, "secrets.json")
}

// GetAPIToken returns the bearer token for the local HTTP API. The token
// comes from MATHBLAST_API_TOKEN when set; otherwise it is read from
// secrets.json in dataDir, generating and persisting a new one on first use.
func GetAPIToken(dataDir string) (string, error) {
	if tok := os.Getenv(apiTokenEnv); tok != "" {
		return tok, nil
	}

	p := secretsFilePath(dataDir)
	secrets := make(map[string]string)
	data, err := os.ReadFile(p)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &secrets); err != nil {
			return "", fmt.Errorf("parsing secrets file: %w", err)
		}
		if tok := secrets["api_token"]; tok != "" {
			return tok, nil
		}
	case !os.IsNotExist(err):
		return "", fmt.Errorf("reading secrets file: %w", err)
	}

	tok := uuid.New().String()
	secrets["api_token"] = tok

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(p, out, 0o600); err != nil {
		return "", fmt.Errorf("writing secrets file: %w", err)
	}
	return tok, nil
}
