package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"repairdesk/pkg/models"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("REPAIRDESK_DATA_DIR", t.TempDir())
	t.Setenv("STORE_DRIVER", "file")
	t.Setenv("GDRIVE_CLIENT_ID", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_CREDENTIALS", "")
}

func TestAddSaleCreatesCustomer(t *testing.T) {
	isolate(t)

	sale := `{"date":"2026-03-01T10:00:00.000Z","customer":"Asha","customerMobile":"9800000000","unitPrice":1200,"purchaseCost":900,"paymentMode":"Cash"}`
	out, err := execute(t, sale, "add", "sale", "--file", "-")
	if err != nil {
		t.Fatalf("add sale: %v\n%s", err, out)
	}
	var added models.Sale
	if err := json.Unmarshal([]byte(out), &added); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if added.ID != "SAL-1001" || added.Profit != 300 || added.CustomerID == "" {
		t.Errorf("added = %+v", added)
	}

	out, err = execute(t, "", "customer", "find", "--name", " asha ", "--phone", "9800000000")
	if err != nil {
		t.Fatalf("customer find: %v\n%s", err, out)
	}
	var c models.Customer
	if err := json.Unmarshal([]byte(out), &c); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if c.ID != added.CustomerID {
		t.Errorf("customer %s, sale links %s", c.ID, added.CustomerID)
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	isolate(t)

	_, err := execute(t, `{"id":"EXP-9999","amount":10}`, "update", "expense", "--file", "-")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	isolate(t)

	if _, err := execute(t, "", "reset"); err == nil {
		t.Fatal("reset without --yes succeeded")
	}
}

func TestLookupKind(t *testing.T) {
	for _, name := range []string{"sales", "sale", "Sale", "jobSheets", "jobsheet", "job"} {
		if _, err := lookupKind(name); err != nil {
			t.Errorf("lookupKind(%q): %v", name, err)
		}
	}
	if _, err := lookupKind("widgets"); err == nil {
		t.Error("lookupKind(widgets) succeeded")
	}
}

func TestAuthCode(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: " 4/0AbCd \n", want: "4/0AbCd"},
		{input: "http://localhost/?state=s1&code=4%2F0XyZ&scope=x", want: "4/0XyZ"},
		{input: "http://localhost/?state=other&code=abc", wantErr: true},
		{input: "http://localhost/?error=access_denied&code=", wantErr: true},
		{input: "   ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := authCode(tt.input, "s1")
		if (err != nil) != tt.wantErr {
			t.Errorf("authCode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("authCode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
