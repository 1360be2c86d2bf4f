package packager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ori/internal/container"
	"github.com/oshokin/ori/internal/domain/android"
)

// fakeContainer records the calls it receives and fails on request.
type fakeContainer struct {
	calls  []string
	failOn string
	closed bool
}

var errStep = errors.New("step failed")

func (f *fakeContainer) step(name string) error {
	f.calls = append(f.calls, name)
	if name == f.failOn {
		return errStep
	}

	return nil
}

func (f *fakeContainer) AddResources(context.Context, string, string) error {
	return f.step("resources")
}

func (f *fakeContainer) AddBinaryPayload(context.Context, string) error {
	return f.step("payload")
}

func (f *fakeContainer) AddNativeLibrary(context.Context, android.Target, string) error {
	return f.step("library")
}

func (f *fakeContainer) Finish(context.Context, *container.Signer) error {
	return f.step("finish")
}

func (f *fakeContainer) Close() error {
	f.closed = true

	return nil
}

func assemble(t *testing.T, fake *fakeContainer) error {
	t.Helper()

	return Run(context.Background(), &Options{
		New: func(string, *android.Manifest, bool) (Container, error) {
			fake.calls = append(fake.calls, "new")

			return fake, nil
		},
		OutputPath:  "/out/my-app.apk",
		Manifest:    &android.Manifest{Package: "ori.my_app"},
		Debuggable:  true,
		PlatformJar: "/target/apk/platforms/android-34/android.jar",
		DexPath:     "/target/apk/platforms/android-34/classes.dex",
		Target:      android.TargetArm64,
		LibraryPath: "/target/aarch64-linux-android/debug/libmy_app.so",
	})
}

// TestRun_Order drives the container in the fixed order.
func TestRun_Order(t *testing.T) {
	t.Parallel()

	fake := &fakeContainer{}

	require.NoError(t, assemble(t, fake))
	require.Equal(t, []string{"new", "resources", "payload", "library", "finish"}, fake.calls)
	require.True(t, fake.closed)
}

// TestRun_AbortsOnFirstFailure stops at the failing step.
func TestRun_AbortsOnFirstFailure(t *testing.T) {
	t.Parallel()

	for _, failing := range []string{"resources", "payload", "library", "finish"} {
		t.Run(failing, func(t *testing.T) {
			t.Parallel()

			fake := &fakeContainer{failOn: failing}

			err := assemble(t, fake)
			require.ErrorIs(t, err, errStep)
			require.Equal(t, failing, fake.calls[len(fake.calls)-1])
			require.True(t, fake.closed)
		})
	}
}

// TestRun_FactoryFailure never touches a container.
func TestRun_FactoryFailure(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{
		New: func(string, *android.Manifest, bool) (Container, error) {
			return nil, errStep
		},
	})
	require.ErrorIs(t, err, errStep)

	require.ErrorIs(t, Run(context.Background(), &Options{}), errFactoryRequired)
}
