package app

import "strconv"

func uintStr(id uint) string { return strconv.FormatUint(uint64(id), 10) }
