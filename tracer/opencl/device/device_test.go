//go:build opencl

package device

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

const testProgram = `
__kernel void square(__global const int *in, __global int *out, const uint width, const uint height) {
	uint x = get_global_id(0);
	uint y = get_global_id(1);
	if (x >= width || y >= height) {
		return;
	}
	uint idx = y * width + x;
	out[idx] = in[idx] * in[idx];
}
`

func createTestDevice(t *testing.T) *Device {
	devList, err := SelectDevices(AllDevices, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(devList) == 0 {
		t.Skip("no opencl devices available; check that opencl drivers are installed")
	}

	dev := devList[0]
	if err = dev.Init(testProgram); err != nil {
		t.Fatalf("error initializing device '%s': %v", dev.Name, err)
	}
	return dev
}

func TestParseDeviceType(t *testing.T) {
	type spec struct {
		in      string
		expType DeviceType
		expErr  bool
	}
	specs := []spec{
		{"cpu", CpuDevice, false},
		{"GPU", GpuDevice, false},
		{"", AllDevices, false},
		{"fpga", 0, true},
	}

	for index, s := range specs {
		devType, err := ParseDeviceType(s.in)
		if (err != nil) != s.expErr {
			t.Fatalf("[spec %d] expected error to be %t; got %v", index, s.expErr, err)
		}
		if devType != s.expType {
			t.Fatalf("[spec %d] expected type %d; got %d", index, s.expType, devType)
		}
	}
}

func TestBlacklist(t *testing.T) {
	type spec struct {
		name      string
		blacklist []string
		exp       bool
	}
	specs := []spec{
		{"Intel(R) Iris(TM) Graphics", []string{"iris"}, true},
		{"GeForce GTX 1080", []string{"iris", ""}, false},
		{"GeForce GTX 1080", nil, false},
	}

	for index, s := range specs {
		if got := isBlacklisted(s.name, s.blacklist); got != s.exp {
			t.Fatalf("[spec %d] expected isBlacklisted to return %t; got %t", index, s.exp, got)
		}
	}
}

func TestRoundUp(t *testing.T) {
	type spec struct {
		v, multiple, exp uint64
	}
	specs := []spec{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
	}

	for index, s := range specs {
		if got := roundUp(s.v, s.multiple); got != s.exp {
			t.Fatalf("[spec %d] expected roundUp(%d, %d) to be %d; got %d", index, s.v, s.multiple, s.exp, got)
		}
	}
}

func TestKernelErrors(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Close()

	if _, err := dev.Kernel("foo"); err == nil {
		t.Fatal("expected to get an error while trying to load an unknown kernel")
	}
}

func TestDataReadWriteOffsets(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Close()

	data := make([]byte, 128)
	for i := 0; i < 128; i++ {
		data[i] = byte(i)
	}

	buf := dev.Buffer("test")
	defer buf.Release()
	if err := buf.Allocate(128, cl.MEM_READ_WRITE); err != nil {
		t.Fatal(err)
	}
	if buf.Size() != 128 {
		t.Fatalf("expected buffer size to be 128; got %d", buf.Size())
	}

	if err := buf.WriteData(data, 0); err != nil {
		t.Fatal(err)
	}

	dataOut := make([]byte, 128)
	if err := buf.ReadData(64, 0, 64, dataOut); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(data[64:], dataOut[:64]) {
		t.Fatal("read data does not match written data")
	}
}

func TestKernelExec2D(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Close()

	kernel, err := dev.Kernel("square")
	if err != nil {
		t.Fatal(err)
	}
	defer kernel.Release()

	const width, height = 7, 5
	dataIn := make([]int32, width*height)
	dataOut := make([]int32, width*height)
	for i := range dataIn {
		dataIn[i] = int32(i)
	}

	bufIn := dev.Buffer("in")
	defer bufIn.Release()
	if err = bufIn.AllocateAndWriteData(dataIn, cl.MEM_READ_ONLY); err != nil {
		t.Fatal(err)
	}

	bufOut := dev.Buffer("out")
	defer bufOut.Release()
	if err = bufOut.AllocateToFitData(dataOut, cl.MEM_WRITE_ONLY); err != nil {
		t.Fatal(err)
	}
	if expSize := len(dataOut) * int(unsafe.Sizeof(dataOut[0])); bufOut.Size() != expSize {
		t.Fatalf("expected buffer size to be %d; got %d", expSize, bufOut.Size())
	}

	if err = kernel.SetArgs(bufIn, bufOut, uint32(width), uint32(height)); err != nil {
		t.Fatal(err)
	}
	// The grid is rounded up to 8x8; the kernel skips the extra work items
	if _, err = kernel.Exec2D(width, height, 4, 4); err != nil {
		t.Fatal(err)
	}

	if err = bufOut.ReadData(0, 0, 0, dataOut); err != nil {
		t.Fatal(err)
	}
	for i, v := range dataOut {
		if v != int32(i*i) {
			t.Fatalf("expected item %d to be %d; got %d", i, i*i, v)
		}
	}
}

func TestSetArgsUnsupportedType(t *testing.T) {
	dev := createTestDevice(t)
	defer dev.Close()

	kernel, err := dev.Kernel("square")
	if err != nil {
		t.Fatal(err)
	}
	defer kernel.Release()

	if err = kernel.SetArgs("string arg"); err == nil {
		t.Fatal("expected an error for an unsupported argument type")
	}
}
