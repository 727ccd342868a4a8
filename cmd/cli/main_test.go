// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestListGoFilesSkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"main.go",
		"internal/payment/pipeline.go",
		"internal/payment/README.md",
		"_reference/other/main.go",
		"vendor/lib/lib.go",
		".git/hooks/hook.go",
	} {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("package x\n"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	files, err := listGoFiles(root)
	if err != nil {
		t.Fatalf("list go files: %v", err)
	}

	want := []string{
		filepath.Join(root, "internal/payment/pipeline.go"),
		filepath.Join(root, "main.go"),
	}
	sort.Strings(want)
	if len(files) != len(want) {
		t.Fatalf("expected %v got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("expected %v got %v", want, files)
		}
	}
}
