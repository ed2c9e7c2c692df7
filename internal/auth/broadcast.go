package auth

import (
	"context"
	"sync"
)

// broadcaster は Identity を購読者に配ります。
// 各購読者のチャネルは容量1で、読まれていない古い値は最新の値で置き換えます。
type broadcaster struct {
	mu      sync.Mutex
	current Identity
	subs    map[chan Identity]struct{}
}

func (b *broadcaster) Current() Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *broadcaster) Subscribe(ctx context.Context) <-chan Identity {
	ch := make(chan Identity, 1)
	b.mu.Lock()
	if b.subs == nil {
		b.subs = map[chan Identity]struct{}{}
	}
	b.subs[ch] = struct{}{}
	ch <- b.current
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

// publish は id が現在値と異なるときだけ配信します。
// 購読者が読んでいない値は新しい値で置き換えるので、途中の Identity は届かないことがあります。
func (b *broadcaster) publish(id Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id == b.current {
		return
	}
	b.current = id
	for ch := range b.subs {
		select {
		case ch <- id:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- id
		}
	}
}

// Static は固定の Identity を返す Provider です (ローカルモード用)。
// Set で切り替えることもできます。
type Static struct {
	broadcaster
}

// NewStatic は name をユーザーとする Provider を作成します。空文字列なら未認証。
func NewStatic(name string) *Static {
	s := &Static{}
	s.current = Identity{Name: name}
	return s
}

// Set は Identity を切り替え、購読者に通知します。
func (s *Static) Set(id Identity) { s.publish(id) }
