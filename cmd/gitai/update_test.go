package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xyue92/gitai/internal/updater"
)

func stubReleaseAPI(t *testing.T, tag string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tag_name":%q,"name":"GitAI","body":"notes"}`, tag)
	}))
	t.Cleanup(server.Close)

	orig := newUpdater
	t.Cleanup(func() { newUpdater = orig })
	newUpdater = func(a *app) *updater.Updater {
		u := updater.New(Version, a.logger)
		u.APIURL = server.URL
		u.DownloadBase = server.URL + "/download"
		u.Client = server.Client()
		return u
	}
}

func setVersion(t *testing.T, v string) {
	t.Helper()
	orig := Version
	t.Cleanup(func() { Version = orig })
	Version = v
}

func TestUpdate_Check(t *testing.T) {
	stubReleaseAPI(t, "v2.0.0")
	setVersion(t, "1.0.0")

	ta := newTestApp(t, "")
	if err := ta.run("update", "--check"); err != nil {
		t.Fatalf("update --check error = %v", err)
	}
	out := ta.out.String()
	for _, want := range []string{"Current version: 1.0.0", "Latest version:  v2.0.0", "A new version is available: v2.0.0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestUpdate_UpToDate(t *testing.T) {
	stubReleaseAPI(t, "v1.0.0")
	setVersion(t, "1.0.0")

	ta := newTestApp(t, "")
	if err := ta.run("update"); err != nil {
		t.Fatalf("update error = %v", err)
	}
	if !strings.Contains(ta.out.String(), "gitai is up to date") {
		t.Errorf("output = %q", ta.out.String())
	}
}
