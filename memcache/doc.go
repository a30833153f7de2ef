// Package memcache defines the memcache client connection consumed by the
// pools in resource_pool, together with the glue needed to build one:
// server spec parsing, behavior translation, an in-memory mock and a
// connection backed by github.com/bradfitz/gomemcache.
//
// The wire protocol, key distribution and hashing are left entirely to the
// underlying client library.
package memcache
