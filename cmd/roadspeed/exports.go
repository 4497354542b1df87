package main

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>

typedef int (*extensionCallback)(char const *name, char const *function, char const *data);

static inline int runExtensionCallback(extensionCallback fnc, char const *name, char const *function, char const *data)
{
	return fnc(name, function, data);
}
*/
import "C"
import (
	"strings"
	"time"
	"unsafe"

	"github.com/RoadSpeedAdjuster/extension/internal/dispatcher"
	"github.com/RoadSpeedAdjuster/extension/pkg/hostabi"
)

// called by the host to get the version of the extension
//
//export RoadSpeedVersion
func RoadSpeedVersion(output *C.char, outputsize C.size_t) {
	replyToSyncCall(abi.version, output, outputsize)
}

// called by the host with a single string, "command|arg|arg"
//
//export RoadSpeedCommand
func RoadSpeedCommand(output *C.char, outputsize C.size_t, input *C.char) {
	parts := strings.Split(C.GoString(input), "|")
	replyToSyncCall(dispatch(parts[0], parts[1:]), output, outputsize)
}

// called by the host with a command and an argument array
//
//export RoadSpeedCommandArgs
func RoadSpeedCommandArgs(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	replyToSyncCall(dispatch(C.GoString(input), parseArgsFromC(argv, argc)), output, outputsize)
}

// called by the host once to hand over its callback
//
//export RoadSpeedRegisterCallback
func RoadSpeedRegisterCallback(fnc C.extensionCallback) {
	if abi.bridge == nil {
		return
	}
	abi.bridge.SetCallback(func(name, function, data string) int {
		cName := C.CString(name)
		cFunction := C.CString(function)
		cData := C.CString(data)
		defer C.free(unsafe.Pointer(cName))
		defer C.free(unsafe.Pointer(cFunction))
		defer C.free(unsafe.Pointer(cData))
		return int(C.runExtensionCallback(fnc, cName, cFunction, cData))
	})
}

func dispatch(command string, args []string) string {
	d := abi.dispatcher
	if d == nil || !d.HasHandler(command) {
		return hostabi.FormatResponse(nil, errNoHandler(command))
	}
	result, err := d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	return hostabi.FormatResponse(result, err)
}

// parseArgsFromC converts C argv array to Go string slice
func parseArgsFromC(argv **C.char, argc C.int) []string {
	var offset = unsafe.Sizeof(uintptr(0))
	var data []string
	for index := C.int(0); index < argc; index++ {
		data = append(data, C.GoString(*argv))
		argv = (**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(argv)) + offset))
	}
	return data
}

// replyToSyncCall will respond to a synchronous extension call from the host
func replyToSyncCall(response string, output *C.char, outputsize C.size_t) {
	result := C.CString(response)
	defer C.free(unsafe.Pointer(result))
	var size = C.strlen(result) + 1
	if size > outputsize {
		size = outputsize
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(result), size)
}
