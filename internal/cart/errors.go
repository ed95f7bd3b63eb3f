package cart

import "errors"

var ErrUnrestorableItem = errors.New("item is no longer orderable")
