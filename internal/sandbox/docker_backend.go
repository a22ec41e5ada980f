package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// workDir is where submission files are copied inside the container
const workDir = "/workspace"

// DockerBackend runs sandboxes as Docker containers.
type DockerBackend struct {
	client *client.Client
}

// NewDockerBackend connects to the Docker daemon from the environment and
// verifies it is reachable.
func NewDockerBackend(ctx context.Context) (*DockerBackend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker not reachable: %w", err)
	}

	return &DockerBackend{client: cli}, nil
}

// CreateContainer starts an idle container the submission is copied into.
func (b *DockerBackend) CreateContainer(ctx context.Context, cfg Config, label string) (string, error) {
	if err := b.ensureImage(ctx, cfg.Image); err != nil {
		return "", fmt.Errorf("ensure image: %w", err)
	}

	containerCfg := &container.Config{
		Image:           cfg.Image,
		Cmd:             []string{"sh", "-c", "while true; do sleep 3600; done"},
		WorkingDir:      workDir,
		NetworkDisabled: cfg.NetworkOff,
		Env:             []string{"CGO_ENABLED=0", "GOFLAGS=-mod=mod", "GOCACHE=/tmp/gocache"},
		Labels: map[string]string{
			"waypoint.sandbox": "true",
			"waypoint.label":   label,
		},
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:   int64(cfg.MemoryMB) * 1024 * 1024,
			NanoCPUs: int64(cfg.CPULimit * 1e9),
		},
	}
	if cfg.PidsLimit > 0 {
		limit := cfg.PidsLimit
		hostCfg.Resources.PidsLimit = &limit
	}

	resp, err := b.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}

	if err := b.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = b.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("start container: %w", err)
	}

	return resp.ID, nil
}

// CopyFiles copies files into the container's workspace.
func (b *DockerBackend) CopyFiles(ctx context.Context, containerID string, files map[string]string) error {
	archive, err := tarFiles(files)
	if err != nil {
		return err
	}
	return b.client.CopyToContainer(ctx, containerID, workDir, archive, container.CopyToContainerOptions{})
}

// tarFiles packs files into a tar stream in name order. Names are cleaned and
// may not escape the workspace.
func tarFiles(files map[string]string) (io.Reader, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range names {
		clean := path.Clean(name)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return nil, fmt.Errorf("file %q escapes the workspace", name)
		}
		content := files[name]
		header := &tar.Header{
			Name: clean,
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, fmt.Errorf("write tar header: %w", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			return nil, fmt.Errorf("write tar content: %w", err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar: %w", err)
	}
	return &buf, nil
}

// Exec runs cmd inside the container and collects its output.
func (b *DockerBackend) Exec(ctx context.Context, containerID string, cmd []string, timeout time.Duration) (*ExecResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execResp, err := b.client.ContainerExecCreate(execCtx, containerID, container.ExecOptions{
		Cmd:          cmd,
		WorkingDir:   workDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create exec: %w", err)
	}

	start := time.Now()

	attachResp, err := b.client.ContainerExecAttach(execCtx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("attach exec: %w", err)
	}
	defer attachResp.Close()

	// The attach stream does not observe execCtx; close it when the deadline hits.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-execCtx.Done():
			attachResp.Close()
		case <-done:
		}
	}()

	var outBuf bytes.Buffer
	_, _ = io.Copy(&outBuf, attachResp.Reader)
	duration := time.Since(start)

	if err := execCtx.Err(); err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}

	inspectResp, err := b.client.ContainerExecInspect(execCtx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect exec: %w", err)
	}

	stdout, stderr := demuxOutput(outBuf.Bytes())
	return &ExecResult{
		ExitCode: inspectResp.ExitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: duration,
	}, nil
}

// DestroyContainer stops and removes a container.
func (b *DockerBackend) DestroyContainer(ctx context.Context, containerID string) error {
	timeout := 5
	_ = b.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	return b.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
}

// Close closes the Docker client.
func (b *DockerBackend) Close() error {
	return b.client.Close()
}

func (b *DockerBackend) ensureImage(ctx context.Context, img string) error {
	if _, err := b.client.ImageInspect(ctx, img); err == nil {
		return nil
	}

	reader, err := b.client.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", img, err)
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

// demuxOutput separates Docker multiplexed stdout/stderr streams.
// Each frame has an 8-byte header: [type][0][0][0][size1][size2][size3][size4]
// where type 1 is stdout and 2 is stderr.
func demuxOutput(data []byte) (stdout, stderr string) {
	if len(data) < 8 || (data[0] != 1 && data[0] != 2) {
		return string(data), ""
	}

	var outBuf, errBuf strings.Builder
	for len(data) >= 8 {
		streamType := data[0]
		size := int(data[4])<<24 | int(data[5])<<16 | int(data[6])<<8 | int(data[7])
		data = data[8:]
		size = min(size, len(data))

		chunk := data[:size]
		data = data[size:]

		switch streamType {
		case 1:
			outBuf.Write(chunk)
		case 2:
			errBuf.Write(chunk)
		}
	}

	return outBuf.String(), errBuf.String()
}
