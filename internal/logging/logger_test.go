package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func allCategories() []Category {
	return []Category{
		CategoryBoot,
		CategorySession,
		CategoryPerception,
		CategoryResolve,
		CategoryDispatch,
		CategoryHub,
		CategoryStore,
		CategoryAPI,
	}
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()
	if err := Initialize(tempDir, Options{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer CloseAll()

	if !IsDebugMode() {
		t.Fatal("Expected debug mode to be enabled")
	}

	for _, cat := range allCategories() {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	// Convenience functions
	BootDebug("Convenience boot log")
	Session("Convenience session log")
	SessionDebug("Convenience session debug log")
	SessionError("Convenience session error log")
	PerceptionDebug("Convenience perception log")
	ResolveDebug("Convenience resolve log")
	Dispatch("Convenience dispatch log")
	DispatchWarn("Convenience dispatch warning")
	Hub("Convenience hub log")
	HubDebug("Convenience hub debug log")
	StoreDebug("Convenience store log")

	CloseAll()

	logsPath := filepath.Join(tempDir, ".gitchat", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	for _, cat := range allCategories() {
		found := false
		for _, entry := range entries {
			if !strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
				continue
			}
			found = true
			content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
			if err != nil {
				t.Errorf("Failed to read log file for %s: %v", cat, err)
				break
			}
			if !strings.Contains(string(content), "Test info message for "+string(cat)) {
				t.Errorf("Log file for %s is missing the info line", cat)
			}
			break
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug_mode is false
func TestDebugModeDisabled(t *testing.T) {
	tempDir := t.TempDir()
	if err := Initialize(tempDir, Options{DebugMode: false}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer CloseAll()

	for _, cat := range allCategories() {
		if IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be disabled in production mode", cat)
		}
		Get(cat).Info("should not be written")
	}

	if _, err := os.Stat(filepath.Join(tempDir, ".gitchat", "logs")); !os.IsNotExist(err) {
		t.Errorf("Logs directory should not exist in production mode, stat err = %v", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	tempDir := t.TempDir()
	err := Initialize(tempDir, Options{
		DebugMode:  true,
		Categories: map[string]bool{"hub": false, "resolve": true},
	})
	if err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer CloseAll()

	if IsCategoryEnabled(CategoryHub) {
		t.Error("hub should be disabled")
	}
	if !IsCategoryEnabled(CategoryResolve) {
		t.Error("resolve should be enabled")
	}
	if !IsCategoryEnabled(CategoryDispatch) {
		t.Error("unlisted categories default to enabled")
	}
}

func TestInitializeRequiresWorkspace(t *testing.T) {
	if err := Initialize("", Options{}); err == nil {
		t.Fatal("expected error for empty workspace")
	}
}

func TestJSONFormat(t *testing.T) {
	tempDir := t.TempDir()
	if err := Initialize(tempDir, Options{DebugMode: true, JSONFormat: true}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	WithRequestID(CategorySession, "abc-123").WithField("nick", "octocat").Info("line %d", 1)
	CloseAll()

	date := time.Now().Format("2006-01-02")
	content, err := os.ReadFile(filepath.Join(tempDir, ".gitchat", "logs", date+"_session.log"))
	if err != nil {
		t.Fatalf("Failed to read session log: %v", err)
	}
	for _, want := range []string{`"req":"abc-123"`, `"nick":"octocat"`, `"msg":"line 1"`, `"cat":"session"`} {
		if !strings.Contains(string(content), want) {
			t.Errorf("session log missing %s:\n%s", want, content)
		}
	}
}

func TestConcurrentGet(t *testing.T) {
	tempDir := t.TempDir()
	if err := Initialize(tempDir, Options{DebugMode: true}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer CloseAll()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Get(allCategories()[i%len(allCategories())]).Info("goroutine %d", i)
		}(i)
	}
	wg.Wait()

	if a, b := Get(CategoryHub), Get(CategoryHub); a != b {
		t.Error("Get should return the cached logger")
	}
}

func TestTimerThreshold(t *testing.T) {
	timer := StartTimer(CategoryAPI, "op")
	if d := timer.StopWithThreshold(time.Hour); d < 0 {
		t.Errorf("elapsed = %v, want >= 0", d)
	}
}
