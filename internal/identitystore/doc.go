// Package identitystore provides file-based persistence for bitchat's
// local identity and favorites data.
//
// It contains concrete implementations of the domain storage interfaces,
// serializing data as JSON on disk. All methods are concurrency-safe via
// internal locking. Stored files typically live under the user's
// configured home directory.
//
// The package includes stores for:
//   - The local identity, passphrase-encrypted (IdentityFileStore)
//   - Favorites, blocked fingerprints, and peer Nostr pubkeys, plain
//     JSON since it holds no secret key material (FavoritesFileStore)
package identitystore
