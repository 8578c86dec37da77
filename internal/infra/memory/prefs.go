package memory

import (
	"context"
	"sync"
)

// Prefs is an in-memory implementation of app.Preferences.
type Prefs struct {
	mu          sync.RWMutex
	guestID     int
	guestSet    bool
	categoryID  int
	categorySet bool
}

func NewPrefs() *Prefs {
	return &Prefs{}
}

func (p *Prefs) SetGuest(_ context.Context, userID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guestID = userID
	p.guestSet = true
	return nil
}

func (p *Prefs) Guest(_ context.Context) (int, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.guestID, p.guestSet, nil
}

func (p *Prefs) SetPreferredCategory(_ context.Context, categoryID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.categoryID = categoryID
	p.categorySet = true
	return nil
}

func (p *Prefs) PreferredCategory(_ context.Context) (int, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.categoryID, p.categorySet, nil
}

func (p *Prefs) Clear(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.guestID = 0
	p.guestSet = false
	p.categoryID = 0
	p.categorySet = false
	return nil
}
