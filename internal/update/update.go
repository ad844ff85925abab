package update

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	repoOwner     = "gabssanto"
	repoName      = "todoscan"
	checkInterval = 24 * time.Hour
	githubAPIURL  = "https://api.github.com/repos/%s/%s/releases/latest"
)

// Release represents a GitHub release
type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	Body    string `json:"body"`
	HTMLURL string `json:"html_url"`
}

// UpdateInfo contains information about available updates
type UpdateInfo struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
	ReleaseNotes    string
}

// getCacheFile returns the path to the update cache file inside the
// todoscan config directory
func getCacheFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "todoscan", ".update-check"), nil
}

// shouldCheck determines if we should check for updates based on cache age
func shouldCheck() bool {
	cacheFile, err := getCacheFile()
	if err != nil {
		return true
	}

	info, err := os.Stat(cacheFile)
	if err != nil {
		return true
	}

	return time.Since(info.ModTime()) > checkInterval
}

// fetchLatestRelease fetches the latest release from GitHub
func fetchLatestRelease() (*Release, error) {
	url := fmt.Sprintf(githubAPIURL, repoOwner, repoName)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &release, nil
}

// saveCache saves the latest version to cache. The write goes through a
// temp file and rename so a killed process never leaves a torn cache.
func saveCache(version string) error {
	cacheFile, err := getCacheFile()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(cacheFile), ".update-check-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(version); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, cacheFile)
}

// readCache reads the cached version info
func readCache() (version string, hasUpdate bool) {
	cacheFile, err := getCacheFile()
	if err != nil {
		return "", false
	}

	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return "", false
	}

	parts := strings.Split(string(data), "\n")
	if len(parts) >= 1 {
		version = strings.TrimSpace(parts[0])
	}
	if len(parts) >= 2 {
		hasUpdate = parts[1] == "update"
	}

	return version, hasUpdate
}

// compareVersions compares two version strings (simple comparison)
// Returns true if latest > current
func compareVersions(current, latest string) bool {
	current = strings.TrimPrefix(current, "v")
	latest = strings.TrimPrefix(latest, "v")

	// Simple string comparison works for semver in most cases
	return latest > current
}

// CheckForUpdate checks if a new version is available
func CheckForUpdate(currentVersion string) (*UpdateInfo, error) {
	release, err := fetchLatestRelease()
	if err != nil {
		return nil, err
	}

	info := &UpdateInfo{
		CurrentVersion:  currentVersion,
		LatestVersion:   release.TagName,
		UpdateAvailable: compareVersions(currentVersion, release.TagName),
		ReleaseURL:      release.HTMLURL,
		ReleaseNotes:    release.Body,
	}

	// Save to cache
	cacheContent := release.TagName
	if info.UpdateAvailable {
		cacheContent += "\nupdate"
	}
	_ = saveCache(cacheContent)

	return info, nil
}

// RefreshCacheIfStale re-checks GitHub in the background path when the
// cache is older than the check interval. Failures are silent.
func RefreshCacheIfStale(currentVersion string) {
	if !shouldCheck() {
		return
	}
	_, _ = CheckForUpdate(currentVersion)
}

// GetUpdateNotice returns a formatted update notice if available
func GetUpdateNotice(currentVersion string) string {
	version, hasUpdate := readCache()
	if !hasUpdate || !compareVersions(currentVersion, version) {
		return ""
	}
	return fmt.Sprintf("\n\033[33m%s\033[0m todoscan %s available (current: %s) - run \033[1mtodoscan update\033[0m\n",
		"!", version, currentVersion)
}

// PerformUpdate downloads and installs the latest version
func PerformUpdate(currentVersion string) error {
	fmt.Println("Checking for updates...")

	info, err := CheckForUpdate(currentVersion)
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}

	if !info.UpdateAvailable {
		fmt.Printf("Already up to date (version %s)\n", currentVersion)
		return nil
	}

	fmt.Printf("New version available: %s (current: %s)\n", info.LatestVersion, info.CurrentVersion)
	fmt.Printf("Release notes: %s\n\n", info.ReleaseURL)

	// Determine platform asset
	assetName := fmt.Sprintf("todoscan-%s-%s", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		assetName += ".exe"
	}

	downloadURL := fmt.Sprintf("https://github.com/%s/%s/releases/download/%s/%s",
		repoOwner, repoName, info.LatestVersion, assetName)

	fmt.Printf("Downloading %s...\n", assetName)

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Get(downloadURL)
	if err != nil {
		return fmt.Errorf("failed to download update: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d (asset may not exist for your platform)", resp.StatusCode)
	}

	// Get current executable path
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	// Create temp file for download
	tmpFile, err := os.CreateTemp("", "todoscan-update-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	_, err = io.Copy(tmpFile, resp.Body)
	_ = tmpFile.Close()
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}

	if err := os.Chmod(tmpPath, 0755); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	// Backup current binary
	backupPath := execPath + ".backup"
	if err := os.Rename(execPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup current binary: %w", err)
	}

	// Move new binary into place
	if err := os.Rename(tmpPath, execPath); err != nil {
		// Try to restore backup
		_ = os.Rename(backupPath, execPath)
		return fmt.Errorf("failed to install update: %w", err)
	}

	_ = os.Remove(backupPath)

	// Clear update cache
	cacheFile, _ := getCacheFile()
	_ = os.Remove(cacheFile)

	fmt.Printf("\nSuccessfully updated to %s!\n", info.LatestVersion)
	return nil
}
