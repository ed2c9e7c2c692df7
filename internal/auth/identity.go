// Package auth は現在のユーザー (Identity) を供給します。
package auth

import "context"

// Identity は認証済みユーザーの表示名です。todo の所有者キーとして使います。
// ゼロ値は未認証を表します。
type Identity struct {
	Name string `json:"name"`
}

// None は未認証です。
var None = Identity{}

// Authenticated は認証済みかどうかを返します。
func (i Identity) Authenticated() bool { return i.Name != "" }

func (i Identity) String() string {
	if !i.Authenticated() {
		return "<none>"
	}
	return i.Name
}

// Provider は Identity の変化を通知します。
// Subscribe は購読時点の Identity を最初に送り、以後は変化のたびに送ります。
// ctx が終わるとチャネルは閉じられます。
type Provider interface {
	Current() Identity
	Subscribe(ctx context.Context) <-chan Identity
}
