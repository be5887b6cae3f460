// Package hashing recognises, verifies and produces password hashes in the
// formats used by operating systems, web frameworks and network appliances.
//
// # Architecture
//
// Every built-in scheme is served by one [Handler] type.  A handler combines
// an immutable [Descriptor] (accepted settings, bounds, defaults), the
// scheme's string grammar, and a checksum [Engine] chosen at run time by the
// scheme's backend resolver.  Supported schemes:
//
//   - md5_crypt ($1$) and apr_md5_crypt ($apr1$)
//   - phpass ($P$, $H$) and nthash ($3$$, $NT$)
//   - bcrypt ($2$, $2a$, $2b$, $2y$)
//   - argon2 (PHC string format, types i, d and id)
//   - cisco_pix, cisco_asa and the reversible cisco_type7
//   - oracle10 and oracle11
//   - django_salted_sha1, django_salted_md5, django_des_crypt, django_disabled
//
// The [Manager] is a named scheme registry and dispatcher.  Register the
// schemes whose hashes you store, designate a default for new hashes, and
// verify through the Manager.
//
// # Quick start
//
//	m, err := hashing.NewDefaultManager() // argon2 default, all schemes registered
//	if err != nil { log.Fatal(err) }
//
//	hash, _ := m.Hash("my-secret-password")
//	ok, _   := m.Verify("my-secret-password", hash) // true
//
// # Variants
//
// [Handler.Using] derives a new handler with different defaults.  Values
// outside a scheme's bounds are rejected with [ErrParameterRange] unless
// [WithRelaxed] is given, in which case they are clamped and reported by
// [Handler.Corrections]:
//
//	h, _ := hashing.New(hashing.SchemeBcrypt)
//	fast, err := h.Using(hashing.WithRounds(4), hashing.WithIdent("2b"))
//
// # Backends
//
// Schemes with more than one checksum engine probe them in preference order
// the first time a checksum is needed: the host crypt(3) when built with the
// oscrypt tag, then library engines, then the portable implementation.  Each
// candidate must reproduce known reference vectors before it is selected, so
// a crypt(3) that silently ignores a format is never used.  The choice is
// cached for the life of the process; see [Handler.Backend],
// [Handler.SetBackend] and [ResetBackends].
//
// # Migration
//
// Call [Manager.VerifyAndUpdate] on every login.  It re-hashes with the
// default scheme when the stored hash was produced by a different scheme or
// with weaker parameters:
//
//	ok, newHash, err := m.VerifyAndUpdate(password, storedHash)
//	if ok && newHash != "" {
//	    persist(userID, newHash)
//	}
//
// # Usernames
//
// Cisco PIX/ASA and Oracle 10g mix the account name into the hash.  It is
// not stored in the hash string and is passed per call:
//
//	h, _ := hashing.New(hashing.SchemeOracle10)
//	ok, _ := h.Verify("tiger", "F894844C34402B67", hashing.WithUser("scott"))
package hashing
