package main

import (
	"encoding/json"
	"testing"

	"clipkeeper/internal/profile"
)

func TestProfileSetShowReset(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.configPath, "profile", "show")
	if err != nil {
		t.Fatalf("profile show: %v", err)
	}
	requireContains(t, out, "No profile saved")

	out, err = runCLI(t, env.configPath, "profile", "set", "--name", " Budi Santoso ", "--age", "40", "--gender", "m")
	if err != nil {
		t.Fatalf("profile set: %v", err)
	}
	requireContains(t, out, "Saved profile for Budi Santoso")

	// Partial updates keep the other fields.
	if _, err := runCLI(t, env.configPath, "profile", "set", "--age", "41"); err != nil {
		t.Fatalf("profile set --age: %v", err)
	}

	out, err = runCLI(t, env.configPath, "profile", "show", "--json")
	if err != nil {
		t.Fatalf("profile show --json: %v", err)
	}
	var got profile.Profile
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	want := profile.Profile{Name: "Budi Santoso", Age: "41", Gender: profile.GenderMale}
	if got != want {
		t.Fatalf("profile = %+v, want %+v", got, want)
	}

	if _, err := runCLI(t, env.configPath, "profile", "reset"); err != nil {
		t.Fatalf("profile reset: %v", err)
	}
	out, _ = runCLI(t, env.configPath, "profile", "show")
	requireContains(t, out, "No profile saved")
}

func TestProfileSetRejectsIncompleteProfile(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, env.configPath, "profile", "set", "--name", "Budi"); err == nil {
		t.Fatal("expected missing age and gender to be rejected")
	}
	if _, err := runCLI(t, env.configPath, "profile", "set", "--name", "Budi", "--age", "40", "--gender", "x"); err == nil {
		t.Fatal("expected unknown gender to be rejected")
	}
	if _, err := runCLI(t, env.configPath, "profile", "set"); err == nil {
		t.Fatal("expected empty set to be rejected")
	}
}

func TestMergeProfile(t *testing.T) {
	current := profile.Profile{Name: "Sari", Age: "30", Gender: profile.GenderFemale}
	next, err := mergeProfile(current, "", " 31 ", "")
	if err != nil {
		t.Fatalf("mergeProfile: %v", err)
	}
	if next.Name != "Sari" || next.Age != "31" || next.Gender != profile.GenderFemale {
		t.Fatalf("unexpected merge %+v", next)
	}
}
