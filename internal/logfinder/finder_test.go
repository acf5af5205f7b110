package logfinder

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// writeLog creates path (and its parents) with an mtime offset from now.
func writeLog(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("test"), 0644); err != nil {
		t.Fatal(err)
	}
	modTime := time.Now().Add(-age)
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatal(err)
	}
}

func realPath(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatal(err)
	}
	return resolved
}

func TestCandidatesFor(t *testing.T) {
	tests := []struct {
		goos    string
		home    string
		appData string
		want    map[string]string
	}{
		{
			goos: "linux",
			home: "/home/steve",
			want: map[string]string{
				ClientVanilla:       "/home/steve/.minecraft/logs/latest.log",
				ClientLunar:         "/home/steve/.lunarclient/offline/1.8/logs/latest.log",
				ClientLunarMultiver: "/home/steve/.lunarclient/offline/multiver/logs/latest.log",
				ClientBadlion:       "/home/steve/.minecraft/logs/blclient/minecraft/latest.log",
				ClientForge:         "/home/steve/.minecraft/logs/fml-client-latest.log",
				ClientPvPLounge:     "/home/steve/.pvplounge/logs/latest.log",
			},
		},
		{
			goos: "darwin",
			home: "/Users/steve",
			want: map[string]string{
				ClientVanilla:   "/Users/steve/Library/Application Support/minecraft/logs/latest.log",
				ClientLunar:     "/Users/steve/.lunarclient/offline/1.8/logs/latest.log",
				ClientPvPLounge: "/Users/steve/Library/Application Support/.pvplounge/logs/latest.log",
			},
		},
		{
			goos:    "windows",
			home:    "/Users/steve",
			appData: "/Users/steve/AppData/Roaming",
			want: map[string]string{
				ClientVanilla: "/Users/steve/AppData/Roaming/.minecraft/logs/latest.log",
				ClientBadlion: "/Users/steve/AppData/Roaming/.minecraft/logs/blclient/minecraft/latest.log",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			got := make(map[string]string)
			for _, c := range CandidatesFor(tt.goos, tt.home, tt.appData) {
				got[c.Client] = filepath.ToSlash(c.Path)
			}
			for client, want := range tt.want {
				if got[client] != want {
					t.Errorf("CandidatesFor(%s)[%s] = %q, want %q", tt.goos, client, got[client], want)
				}
			}
		})
	}
}

func TestCandidatesFor_NoHome(t *testing.T) {
	if got := CandidatesFor("linux", "", ""); got != nil {
		t.Errorf("CandidatesFor() = %v, want nil", got)
	}
}

func TestClients(t *testing.T) {
	want := []string{
		ClientBadlion, ClientForge, ClientLunar,
		ClientLunarMultiver, ClientPvPLounge, ClientVanilla,
	}
	if got := Clients(); !reflect.DeepEqual(got, want) {
		t.Errorf("Clients() = %v, want %v", got, want)
	}
}

func TestFindNewest(t *testing.T) {
	dir := t.TempDir()
	cands := []Candidate{
		{"vanilla", filepath.Join(dir, "vanilla", "latest.log")},
		{"lunar", filepath.Join(dir, "lunar", "latest.log")},
		{"badlion", filepath.Join(dir, "badlion", "latest.log")},
		{"missing", filepath.Join(dir, "missing", "latest.log")},
	}
	writeLog(t, cands[0].Path, 3*time.Hour)
	writeLog(t, cands[1].Path, time.Hour)
	writeLog(t, cands[2].Path, 2*time.Hour)

	got, err := FindNewest(cands)
	if err != nil {
		t.Fatalf("FindNewest() error = %v", err)
	}
	if got.Client != "lunar" {
		t.Errorf("FindNewest() = %v, want lunar", got)
	}
}

func TestFindNewest_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	asDir := filepath.Join(dir, "latest.log")
	if err := os.Mkdir(asDir, 0755); err != nil {
		t.Fatal(err)
	}

	_, err := FindNewest([]Candidate{{"vanilla", asDir}})
	if !errors.Is(err, ErrNoLogFiles) {
		t.Errorf("FindNewest() error = %v, want %v", err, ErrNoLogFiles)
	}
}

func TestFindNewest_NoFiles(t *testing.T) {
	_, err := FindNewest(nil)
	if !errors.Is(err, ErrNoLogFiles) {
		t.Errorf("FindNewest() error = %v, want %v", err, ErrNoLogFiles)
	}
}

func TestResolveFrom_Explicit(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "latest.log")
	writeLog(t, logFile, 0)

	// Explicit should take priority over env
	t.Setenv(EnvLogFile, "/some/other/latest.log")

	got, err := ResolveFrom(logFile, ClientLunar, nil)
	if err != nil {
		t.Fatalf("ResolveFrom() error = %v", err)
	}
	want := Candidate{Client: ClientCustom, Path: realPath(t, logFile)}
	if got != want {
		t.Errorf("ResolveFrom() = %v, want %v", got, want)
	}
}

func TestResolveFrom_ExplicitInvalid(t *testing.T) {
	_, err := ResolveFrom("/nonexistent/latest.log", "", nil)
	if !errors.Is(err, ErrLogFileInvalid) {
		t.Errorf("ResolveFrom() error = %v, want %v", err, ErrLogFileInvalid)
	}
}

func TestResolveFrom_EnvVar(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "latest.log")
	writeLog(t, logFile, 0)
	t.Setenv(EnvLogFile, logFile)

	got, err := ResolveFrom("", ClientLunar, nil)
	if err != nil {
		t.Fatalf("ResolveFrom() error = %v", err)
	}
	if got.Path != realPath(t, logFile) || got.Client != ClientCustom {
		t.Errorf("ResolveFrom() = %v, want custom %s", got, logFile)
	}
}

func TestResolveFrom_EnvVarInvalid(t *testing.T) {
	t.Setenv(EnvLogFile, "/nonexistent/latest.log")

	_, err := ResolveFrom("", "", nil)
	if !errors.Is(err, ErrLogFileInvalid) {
		t.Errorf("ResolveFrom() error = %v, want %v", err, ErrLogFileInvalid)
	}
	if err != nil && !strings.Contains(err.Error(), EnvLogFile) {
		t.Errorf("ResolveFrom() error = %v, want mention of %s", err, EnvLogFile)
	}
}

func TestResolveFrom_Client(t *testing.T) {
	t.Setenv(EnvLogFile, "")
	dir := t.TempDir()
	cands := []Candidate{
		{ClientVanilla, filepath.Join(dir, "vanilla.log")},
		{ClientLunar, filepath.Join(dir, "lunar.log")},
	}
	writeLog(t, cands[0].Path, 0)
	writeLog(t, cands[1].Path, time.Hour)

	// The named client wins even though vanilla is newer
	got, err := ResolveFrom("", ClientLunar, cands)
	if err != nil {
		t.Fatalf("ResolveFrom() error = %v", err)
	}
	if got.Client != ClientLunar || got.Path != realPath(t, cands[1].Path) {
		t.Errorf("ResolveFrom() = %v, want lunar", got)
	}
}

func TestResolveFrom_ClientWithoutLog(t *testing.T) {
	t.Setenv(EnvLogFile, "")
	cands := []Candidate{{ClientLunar, filepath.Join(t.TempDir(), "lunar.log")}}

	_, err := ResolveFrom("", ClientLunar, cands)
	if !errors.Is(err, ErrNoLogFiles) {
		t.Errorf("ResolveFrom() error = %v, want %v", err, ErrNoLogFiles)
	}
}

func TestResolveFrom_UnknownClient(t *testing.T) {
	t.Setenv(EnvLogFile, "")

	_, err := ResolveFrom("", "feather", CandidatesFor("linux", "/home/steve", ""))
	if !errors.Is(err, ErrUnknownClient) {
		t.Errorf("ResolveFrom() error = %v, want %v", err, ErrUnknownClient)
	}
}

func TestResolveFrom_AutoDetect(t *testing.T) {
	t.Setenv(EnvLogFile, "")
	dir := t.TempDir()
	cands := []Candidate{
		{ClientVanilla, filepath.Join(dir, "vanilla.log")},
		{ClientBadlion, filepath.Join(dir, "badlion.log")},
	}
	writeLog(t, cands[0].Path, time.Hour)
	writeLog(t, cands[1].Path, 0)

	got, err := ResolveFrom("", "", cands)
	if err != nil {
		t.Fatalf("ResolveFrom() error = %v", err)
	}
	if got.Client != ClientBadlion {
		t.Errorf("ResolveFrom() = %v, want badlion", got)
	}
}

func TestResolveFrom_AutoDetectNothing(t *testing.T) {
	t.Setenv(EnvLogFile, "")

	_, err := ResolveFrom("", "", CandidatesFor("linux", t.TempDir(), ""))
	if !errors.Is(err, ErrNoLogFiles) {
		t.Errorf("ResolveFrom() error = %v, want %v", err, ErrNoLogFiles)
	}
}
