package importer

import (
	"strings"
	"testing"
)

func TestASCIIRule(t *testing.T) {
	if v := ASCIIRule("端末コード", "TB-001", 5); v != nil {
		t.Fatalf("clean value flagged: %+v", v)
	}
	if v := ASCIIRule("端末コード", "", 5); v != nil {
		t.Fatalf("empty value flagged: %+v", v)
	}
	v := ASCIIRule("端末コード", "ＴＢ－００１", 5)
	if v == nil {
		t.Fatal("full-width value passed")
	}
	if v.Row != 5 || v.Field != "端末コード" {
		t.Fatalf("unexpected violation: %+v", v)
	}
	if !strings.Contains(v.Message, "ＴＢ－００１") {
		t.Fatalf("message should echo the raw value: %s", v.Message)
	}
}

func TestNumericCodeRule(t *testing.T) {
	if v := NumericCodeRule("利用者コード", "100-23", 3); v != nil {
		t.Fatalf("digits and hyphens flagged: %+v", v)
	}
	if v := NumericCodeRule("利用者コード", "E001", 3); v == nil {
		t.Fatal("letters passed")
	}
	if v := NumericCodeRule("利用者コード", "", 3); v != nil {
		t.Fatalf("empty value flagged: %+v", v)
	}
}

func TestIPShapeRule(t *testing.T) {
	clean := []string{"192.168.1.0", "10.0.0.1", "255.255.255.0", "999.999.999.999"}
	for _, in := range clean {
		if v := IPShapeRule("ネットワークアドレス", in, 2); v != nil {
			t.Errorf("IPShapeRule(%q) flagged: %+v", in, v)
		}
	}
	bad := []string{"192.168.1", "192.168.1.0.1", "192.168..1", "192.168.1.abcd", "1921.68.1.0", "a.b.c.d"}
	for _, in := range bad {
		if v := IPShapeRule("ネットワークアドレス", in, 2); v == nil {
			t.Errorf("IPShapeRule(%q) passed", in)
		}
	}
}

func TestEnumRule(t *testing.T) {
	rule := EnumRule([]string{"ドコモ", "au", "ソフトバンク"})
	if v := rule("キャリア", "au", 4); v != nil {
		t.Fatalf("allowed value flagged: %+v", v)
	}
	v := rule("キャリア", "楽天", 4)
	if v == nil {
		t.Fatal("disallowed value passed")
	}
	if !strings.Contains(v.Message, "ドコモ, au, ソフトバンク") {
		t.Fatalf("message should enumerate the allow-list: %s", v.Message)
	}
	if v := rule("キャリア", "", 4); v != nil {
		t.Fatalf("empty value flagged: %+v", v)
	}
}
