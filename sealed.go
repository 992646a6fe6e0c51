/*
Package sealed provides a high-level encoding and ciphertext-algebra layer on
top of the Lattigo homomorphic-encryption library. It exposes a single scheme
facade (CipherScheme) that validates encryption parameters, generates key
material and encrypts application values (signed integers, fixed-point
rationals and integer matrices) into CipherText values supporting homomorphic
addition, negation, subtraction, multiplication, exponentiation,
relinearization and matrix rotation.

The lattice cryptography itself (ring arithmetic, key generation, encryption
and the homomorphic primitives) is delegated to the BFV scheme of
github.com/tuneinsight/lattigo/v5; this package owns the plaintext encoding
rules and the compatibility contracts between ciphertext operands.
*/
package sealed

// Version is the current version of the sealed library.
const Version = "1.0.0"
