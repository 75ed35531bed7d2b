package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// rcFileName is looked up in the user's home directory and in the current
// working directory; project-level values override user-level values key
// by key.
const rcFileName = ".agent-browserrc.json"

// LoadRCConfig reads and merges the user-level and project-level rc files.
// Missing or malformed files contribute nothing; the result is never nil.
func LoadRCConfig() map[string]any {
	merged := map[string]any{}

	if home, err := os.UserHomeDir(); err == nil {
		mergeRCFile(merged, filepath.Join(home, rcFileName))
	}

	mergeRCFile(merged, rcFileName)

	return merged
}

// mergeRCFile overlays the JSON object at path onto dst, key by key.
func mergeRCFile(dst map[string]any, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var parsed map[string]any
	if err := json.Unmarshal(content, &parsed); err != nil {
		return
	}

	for key, value := range parsed {
		dst[key] = value
	}
}

// Resolve fills unset Options fields from environment variables and rc-file
// values. Fields already set by the caller are left untouched; environment
// variables win over rc-file values.
func (o *Options) Resolve() {
	rc := LoadRCConfig()

	if o.Session == "" {
		o.Session = stringSetting(rc, "session", "AGENT_BROWSER_SESSION")
	}

	if o.Session == "" {
		o.Session = DefaultSession
	}

	if !o.Headed {
		o.Headed = boolSetting(rc, "headed", "AGENT_BROWSER_HEADED")
	}

	if o.ExecutablePath == "" {
		o.ExecutablePath = stringSetting(rc, "executablePath", "AGENT_BROWSER_EXECUTABLE_PATH")
	}

	if len(o.Extensions) == 0 {
		o.Extensions = extensionsSetting(rc)
	}

	if o.Profile == "" {
		o.Profile = stringSetting(rc, "profile", "AGENT_BROWSER_PROFILE")
	}

	if o.State == "" {
		o.State = stringSetting(rc, "state", "AGENT_BROWSER_STATE")
	}

	if o.Proxy == "" {
		o.Proxy = stringSetting(rc, "proxy", "AGENT_BROWSER_PROXY")
	}

	if o.ProxyBypass == "" {
		o.ProxyBypass = stringSetting(rc, "proxyBypass", "AGENT_BROWSER_PROXY_BYPASS")
	}

	if o.BrowserArgs == "" {
		o.BrowserArgs = stringSetting(rc, "args", "AGENT_BROWSER_ARGS")
	}

	if o.UserAgent == "" {
		o.UserAgent = stringSetting(rc, "userAgent", "AGENT_BROWSER_USER_AGENT")
	}

	if o.Provider == "" {
		o.Provider = stringSetting(rc, "provider", "AGENT_BROWSER_PROVIDER")
	}

	if !o.IgnoreHTTPSErrors {
		o.IgnoreHTTPSErrors, _ = rc["ignoreHttpsErrors"].(bool)
	}

	if !o.AllowFileAccess {
		o.AllowFileAccess = boolSetting(rc, "allowFileAccess", "AGENT_BROWSER_ALLOW_FILE_ACCESS")
	}
}

// stringSetting resolves a string-valued setting: environment variable first,
// then the rc-file key.
func stringSetting(rc map[string]any, key, envVar string) string {
	if v, ok := os.LookupEnv(envVar); ok && v != "" {
		return v
	}

	if v, ok := rc[key].(string); ok {
		return v
	}

	return ""
}

// boolSetting resolves a flag-style setting: presence of the environment
// variable means true, otherwise the rc-file key decides.
func boolSetting(rc map[string]any, key, envVar string) bool {
	if _, ok := os.LookupEnv(envVar); ok {
		return true
	}

	v, _ := rc[key].(bool)

	return v
}

// extensionsSetting resolves the extension list: a comma-separated
// environment variable first, then the rc-file array.
func extensionsSetting(rc map[string]any) []string {
	if raw, ok := os.LookupEnv("AGENT_BROWSER_EXTENSIONS"); ok {
		var exts []string

		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				exts = append(exts, p)
			}
		}

		if len(exts) > 0 {
			return exts
		}
	}

	arr, ok := rc["extensions"].([]any)
	if !ok {
		return nil
	}

	exts := make([]string, 0, len(arr))

	for _, v := range arr {
		if s, ok := v.(string); ok {
			exts = append(exts, s)
		}
	}

	return exts
}
