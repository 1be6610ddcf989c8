package pdfops

import (
	"bytes"
	"crypto/md5"
	"crypto/rc4"
	"fmt"
	"strings"
	"time"
)

const maxKeyLength = 16

var padding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41, 0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80, 0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// fileKey computes the RC4 key of the standard security handler for the
// empty user password, and checks it against the U entry.
func fileKey(encrypt Dict, fileid []byte) ([]byte, error) {
	if f := encrypt.GetName("Filter"); f != "Standard" {
		return nil, fmt.Errorf("security handler %s: %w", f, ErrUnsupported)
	}
	var (
		version  = encrypt.GetInt("V")
		revision = encrypt.GetInt("R")
		size     = int64(5)
	)
	switch version {
	case 1:
	case 2:
		if n := encrypt.GetInt("Length"); n > 0 {
			size = n / 8
		}
	case 4:
		cf := encrypt.GetDict("CF").GetDict(encrypt.GetName("StmF"))
		if m := cf.GetName("CFM"); m != "V2" {
			return nil, fmt.Errorf("crypt filter %s: %w", m, ErrUnsupported)
		}
		size = maxKeyLength
		if n := cf.GetInt("Length"); n > 0 {
			size = n
		}
	default:
		return nil, fmt.Errorf("encryption version %d: %w", version, ErrUnsupported)
	}
	if size > maxKeyLength {
		size = maxKeyLength
	}

	var (
		sum  = md5.New()
		perm = uint32(encrypt.GetInt("P"))
	)
	sum.Write(padding)
	sum.Write(encrypt.GetBytes("O"))
	sum.Write([]byte{byte(perm), byte(perm >> 8), byte(perm >> 16), byte(perm >> 24)})
	sum.Write(fileid)
	if revision >= 4 && encrypt.Has("EncryptMetadata") && !encrypt.GetBool("EncryptMetadata") {
		sum.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}
	key := sum.Sum(nil)
	if revision >= 3 {
		for i := 0; i < 50; i++ {
			sum.Reset()
			sum.Write(key[:size])
			key = sum.Sum(nil)
		}
	}
	key = key[:size]

	user := encrypt.GetBytes("U")
	if revision == 2 {
		check := rc4Bytes(key, padding)
		if !bytes.Equal(user, check) {
			return nil, fmt.Errorf("invalid password")
		}
		return key, nil
	}

	sum.Reset()
	sum.Write(padding)
	sum.Write(fileid)
	check := sum.Sum(nil)

	tmp := make([]byte, len(key))
	for i := 0; i < 20; i++ {
		for j := range tmp {
			tmp[j] = key[j] ^ byte(i)
		}
		c, err := rc4.NewCipher(tmp)
		if err != nil {
			return nil, err
		}
		c.XORKeyStream(check, check)
	}
	if !bytes.HasPrefix(user, check) {
		return nil, fmt.Errorf("invalid password")
	}
	return key, nil
}

// objectKey derives the key of one object from the file key.
func objectKey(key []byte, ref Reference) []byte {
	if len(key) == 0 {
		return nil
	}
	tmp := make([]byte, len(key), len(key)+5)
	copy(tmp, key)
	tmp = append(tmp, byte(ref.Num), byte(ref.Num>>8), byte(ref.Num>>16))
	tmp = append(tmp, byte(ref.Gen), byte(ref.Gen>>8))

	var (
		sum  = md5.Sum(tmp)
		size = len(tmp)
	)
	if size > maxKeyLength {
		size = maxKeyLength
	}
	return sum[:size]
}

func rc4Bytes(key, str []byte) []byte {
	if len(key) == 0 {
		return str
	}
	ciph, err := rc4.NewCipher(key)
	if err != nil {
		return str
	}
	out := make([]byte, len(str))
	ciph.XORKeyStream(out, str)
	return out
}

// decryptValue returns a copy of v where every string is decrypted with key.
func decryptValue(key []byte, v Value) Value {
	if len(key) == 0 {
		return v
	}
	switch v := v.(type) {
	case String:
		return String{Bytes: rc4Bytes(key, v.Bytes), Hex: v.Hex}
	case Array:
		arr := make(Array, len(v))
		for i := range v {
			arr[i] = decryptValue(key, v[i])
		}
		return arr
	case Dict:
		dict := make(Dict, len(v))
		for k := range v {
			dict[k] = decryptValue(key, v[k])
		}
		return dict
	default:
		return v
	}
}

var timePatterns = []string{
	"D:20060102150405-0700",
	"D:20060102150405-07",
	"D:20060102150405",
	"D:200601021504",
	"D:2006010215",
	"D:20060102",
	"D:200601",
	"D:2006",
}

// parseTime reads a PDF date (D:YYYYMMDDHHmmSSOHH'mm).
func parseTime(str string) (time.Time, error) {
	var (
		when time.Time
		err  error
	)
	str = strings.ReplaceAll(strings.TrimSpace(str), "'", "")
	if i := strings.IndexByte(str, 'Z'); i >= 0 {
		str = str[:i]
	}
	if !strings.HasPrefix(str, "D:") {
		str = "D:" + str
	}
	for _, pat := range timePatterns {
		when, err = time.Parse(pat, str)
		if err == nil {
			break
		}
	}
	return when, err
}
