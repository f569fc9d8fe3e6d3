package config

import "testing"

func TestTickerListDefaultsWhenEmpty(t *testing.T) {
	c := &Config{Tickers: ""}
	list := c.TickerList()
	if len(list) != len(DefaultTickers) {
		t.Fatalf("expected %d default tickers, got %d", len(DefaultTickers), len(list))
	}
}

func TestTickerListParsesAndNormalizes(t *testing.T) {
	c := &Config{Tickers: " aapl, MSFT ,,tsla"}
	list := c.TickerList()
	want := []string{"AAPL", "MSFT", "TSLA"}
	if len(list) != len(want) {
		t.Fatalf("got %v, want %v", list, want)
	}
	for i, w := range want {
		if list[i] != w {
			t.Fatalf("got %v, want %v", list, want)
		}
	}
}

func TestTickerListDoesNotAliasDefaults(t *testing.T) {
	c := &Config{Tickers: ""}
	list := c.TickerList()
	list[0] = "MUTATED"
	if DefaultTickers[0] == "MUTATED" {
		t.Fatal("TickerList must return a copy, not the shared default slice")
	}
}
