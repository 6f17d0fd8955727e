package main

import (
	"github.com/kiteco/cc2ftr/kite-golib/cmdline"
	"github.com/kiteco/cc2ftr/kite-golib/kitelog"
)

var logger = kitelog.Basic

func main() {
	defer logger.Sync()
	cmdline.MustDispatch(gitCommitsCmd, buildDictionaryCmd, predictCmd, extractCmd)
}
