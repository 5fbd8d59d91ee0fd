package codec

import (
	"bytes"
	"testing"

	"github.com/Shivanand-hulikatti/event-factory/internal/model"
)

func TestMarshalDeterministic(t *testing.T) {
	details := model.EventDetails{
		Date:        1_700_000_000_000_000_000,
		Location:    "Moon base",
		Title:       "Space Jam",
		Description: "Basketball in low gravity",
	}

	first, err := Marshal(details)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(details)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestAmountEncodesAsText(t *testing.T) {
	price, err := model.ParseAmount("340282366920938463463374607431768211455")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}

	data, err := Marshal(price)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// Major type 3 (text string).
	if data[0]>>5 != 3 {
		t.Fatalf("expected text string major type, got %d", data[0]>>5)
	}

	var decoded model.Amount
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Cmp(price) != 0 {
		t.Errorf("decoded %s, want %s", decoded, price)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var v uint32
	if err := Unmarshal([]byte{0xff, 0x00}, &v); err == nil {
		t.Fatal("expected error decoding malformed CBOR")
	}
}
