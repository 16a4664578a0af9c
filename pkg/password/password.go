// Package password 提供带密钥的口令摘要（Argon2id）。
//
// 每个账号持有独立的随机密钥（即 Argon2 盐），摘要与密钥需分两列持久化，
// 缺少密钥将无法校验口令。
package password

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize 每账号随机密钥长度（字节）
	KeySize = 128
	// HashSize 摘要长度（字节）
	HashSize = 64
)

// Argon2id 参数，与 RFC 9106 第二推荐档一致
const (
	argonIterations  uint32 = 3
	argonMemory      uint32 = 64 * 1024
	argonParallelism uint8  = 4
)

// GenerateCredential 生成新的随机密钥，并计算口令在该密钥下的摘要
func GenerateCredential(plaintext string) (hash, key []byte) {
	key = make([]byte, KeySize)
	// crypto/rand.Read 不会返回错误（Go 1.24+ 语义）
	_, _ = rand.Read(key)
	return Hash(plaintext, key), key
}

// Hash 计算口令在给定密钥下的摘要；相同口令与密钥恒得相同结果
func Hash(plaintext string, key []byte) []byte {
	return argon2.IDKey([]byte(plaintext), key, argonIterations, argonMemory, argonParallelism, HashSize)
}

// Verify 用存储的密钥重新计算摘要并做常量时间比较
func Verify(plaintext string, key, expectedHash []byte) bool {
	if len(key) == 0 || len(expectedHash) != HashSize {
		return false
	}
	return subtle.ConstantTimeCompare(Hash(plaintext, key), expectedHash) == 1
}
