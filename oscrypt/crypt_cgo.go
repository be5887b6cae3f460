//go:build cgo && linux && oscrypt

package oscrypt

/*
#cgo LDFLAGS: -lcrypt
#define _GNU_SOURCE
#include <crypt.h>
#include <stdlib.h>
#include <string.h>

static char *crypt_reentrant(const char *key, const char *setting) {
	struct crypt_data *data = calloc(1, sizeof(struct crypt_data));
	if (data == NULL) {
		return NULL;
	}
	char *out = crypt_r(key, setting, data);
	char *res = out == NULL ? NULL : strdup(out);
	free(data);
	return res;
}
*/
import "C"

import (
	"bytes"
	"fmt"
	"strings"
	"unsafe"
)

// Available reports whether crypt(3) is compiled in.
func Available() bool { return true }

// Crypt runs crypt_r(3) with the given key and setting string.  The setting
// carries the algorithm prefix, parameters and salt, e.g. "$1$salt$".
func Crypt(key []byte, setting string) (string, error) {
	if bytes.IndexByte(key, 0) >= 0 {
		return "", ErrNullByte
	}
	cKey := C.CString(string(key))
	cSetting := C.CString(setting)
	defer C.free(unsafe.Pointer(cKey))
	defer C.free(unsafe.Pointer(cSetting))

	out := C.crypt_reentrant(cKey, cSetting)
	if out == nil {
		return "", fmt.Errorf("%w: crypt_r returned NULL", ErrFailed)
	}
	defer C.free(unsafe.Pointer(out))

	res := C.GoString(out)
	if res == "" || strings.HasPrefix(res, "*") {
		return "", fmt.Errorf("%w: %q", ErrFailed, res)
	}
	return res, nil
}
