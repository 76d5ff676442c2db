package redis

import "errors"

// ErrInvalidScriptResult Lua 脚本返回值格式不符合预期
var ErrInvalidScriptResult = errors.New("redis: unexpected script result")
