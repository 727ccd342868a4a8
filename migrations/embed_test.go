// SPDX-License-Identifier: Apache-2.0

package migrations

import (
	"strings"
	"testing"
)

func TestOrderedReturnsSortedMigrations(t *testing.T) {
	files, err := Ordered()
	if err != nil {
		t.Fatalf("ordered migrations: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected at least 2 migrations got %d", len(files))
	}

	for i := 1; i < len(files); i++ {
		if files[i-1].Name >= files[i].Name {
			t.Fatalf("expected sorted migrations, got %s before %s", files[i-1].Name, files[i].Name)
		}
	}
	if files[0].Version != "0001" {
		t.Fatalf("expected first version 0001 got %s", files[0].Version)
	}
}

func TestLedgerMigrationDeclaresUniqueKey(t *testing.T) {
	files, err := Ordered()
	if err != nil {
		t.Fatalf("ordered migrations: %v", err)
	}

	for _, f := range files {
		if strings.Contains(f.SQL, "idempotency_records") {
			if !strings.Contains(f.SQL, "UNIQUE (key)") {
				t.Fatalf("expected %s to declare a unique constraint on key", f.Name)
			}
			return
		}
	}
	t.Fatal("expected an idempotency_records migration")
}
