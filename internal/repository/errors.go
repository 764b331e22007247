package repository

import "errors"

// ErrDuplicate は一意制約違反を表す。
// 呼び出し側はerrors.Isで検出し、重複エラーまたは再読込として扱う。
var ErrDuplicate = errors.New("一意制約違反")
