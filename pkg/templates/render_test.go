package templates

import "testing"

func TestRenderSubstitutesKnownKeys(t *testing.T) {
	body := "{고객명}님, {매장명}에서 {메뉴} 주문 감사합니다! ({플랫폼})"
	got := Render(body, map[string]string{
		KeyCustomerName: "홍길동",
		KeyStoreName:    "우리분식",
		KeyMenuName:     "떡볶이",
		KeyPlatform:     "baemin",
	})
	want := "홍길동님, 우리분식에서 떡볶이 주문 감사합니다! (baemin)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderMissingValuesBecomeEmpty(t *testing.T) {
	got := Render("{고객명}님 감사합니다", map[string]string{})
	if got != "님 감사합니다" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	got := Render("{알수없음} {고객명}", map[string]string{KeyCustomerName: "A"})
	if got != "{알수없음} A" {
		t.Fatalf("got %q", got)
	}
}
