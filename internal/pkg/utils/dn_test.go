package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDN(t *testing.T) {
	dn := "/C=CN/O=neohq/CN=0123456789abcdef0123456789abcdef"
	parsed := ParseDN(dn)
	assert.Equal(t, "CN", parsed["C"])
	assert.Equal(t, "neohq", parsed["O"])
	assert.Equal(t, "0123456789abcdef0123456789abcdef", parsed["CN"])
}

func TestParseDNSkipsMalformedParts(t *testing.T) {
	parsed := ParseDN("/garbage/CN=abc/noequals")
	assert.Equal(t, map[string]string{"CN": "abc"}, parsed)

	assert.Empty(t, ParseDN(""))
	assert.Empty(t, ParseDN("///"))
}

func TestParseDNValueWithEquals(t *testing.T) {
	parsed := ParseDN("/OU=a=b")
	assert.Equal(t, "a=b", parsed["OU"])
}
