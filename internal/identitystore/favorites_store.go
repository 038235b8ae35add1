package identitystore

import (
	"path/filepath"
	"sync"

	"bitchat/internal/domain"
)

const favoritesFilename = "favorites.json"

// favoritesData is the on-disk shape of the favorites file, keyed by the
// hex-encoded fingerprint since domain.Fingerprint isn't itself a valid
// JSON map key type.
type favoritesData struct {
	Favorites    map[string]bool   `json:"favorites"`
	Blocked      map[string]bool   `json:"blocked"`
	NostrPubKeys map[string]string `json:"nostr_pub_keys"`
}

// FavoritesFileStore persists the favorites map, the blocked-fingerprint
// set, and the peer-to-Nostr-pubkey mapping the Relay Transport uses for
// reachability. Unlike the identity store, this file holds no secret key
// material, so it is plain JSON rather than passphrase-encrypted.
type FavoritesFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFavoritesFileStore returns a FavoritesFileStore rooted at dir.
func NewFavoritesFileStore(dir string) *FavoritesFileStore {
	return &FavoritesFileStore{dir: dir}
}

func (s *FavoritesFileStore) file() bitchatFile {
	return bitchatFile{path: filepath.Join(s.dir, favoritesFilename)}
}

func (s *FavoritesFileStore) load() (favoritesData, error) {
	var d favoritesData
	if err := s.file().readJSON(&d); err != nil {
		return favoritesData{}, err
	}
	if d.Favorites == nil {
		d.Favorites = make(map[string]bool)
	}
	if d.Blocked == nil {
		d.Blocked = make(map[string]bool)
	}
	if d.NostrPubKeys == nil {
		d.NostrPubKeys = make(map[string]string)
	}
	return d, nil
}

func (s *FavoritesFileStore) save(d favoritesData) error {
	return s.file().writeJSON(d, 0o600)
}

// SetFavorite records whether fp is favorited.
func (s *FavoritesFileStore) SetFavorite(fp domain.Fingerprint, isFavorite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load()
	if err != nil {
		return err
	}
	if isFavorite {
		d.Favorites[fp.String()] = true
	} else {
		delete(d.Favorites, fp.String())
	}
	return s.save(d)
}

// IsFavorite reports whether fp is favorited.
func (s *FavoritesFileStore) IsFavorite(fp domain.Fingerprint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load()
	if err != nil {
		return false
	}
	return d.Favorites[fp.String()]
}

// Block adds fp to the blocked set.
func (s *FavoritesFileStore) Block(fp domain.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load()
	if err != nil {
		return err
	}
	d.Blocked[fp.String()] = true
	return s.save(d)
}

// Unblock removes fp from the blocked set.
func (s *FavoritesFileStore) Unblock(fp domain.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load()
	if err != nil {
		return err
	}
	delete(d.Blocked, fp.String())
	return s.save(d)
}

// IsBlocked reports whether fp is blocked.
func (s *FavoritesFileStore) IsBlocked(fp domain.Fingerprint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load()
	if err != nil {
		return false
	}
	return d.Blocked[fp.String()]
}

// SetNostrPublicKey records the relay pubkey fp announced for itself.
func (s *FavoritesFileStore) SetNostrPublicKey(fp domain.Fingerprint, pub string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load()
	if err != nil {
		return err
	}
	d.NostrPubKeys[fp.String()] = pub
	return s.save(d)
}

// NostrPublicKey returns the relay pubkey recorded for fp, if any.
func (s *FavoritesFileStore) NostrPublicKey(fp domain.Fingerprint) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.load()
	if err != nil {
		return "", false
	}
	pub, ok := d.NostrPubKeys[fp.String()]
	return pub, ok
}

// Clear overwrites the persisted favorites file with an empty set of
// favorites, blocks and pubkeys.
func (s *FavoritesFileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(favoritesData{})
}

// Compile-time assertion that FavoritesFileStore implements domain.FavoritesStore.
var _ domain.FavoritesStore = (*FavoritesFileStore)(nil)
