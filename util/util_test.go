package util

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"testing"

	"github.com/google/go-github/github"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestParseRelativePath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	workingDir, err := os.Getwd()
	require.NoError(t, err)

	currentDir := path.Dir(path.Join(workingDir))

	tests := []struct {
		name               string
		path               string
		mockGetUserHomeDir func() (string, error)
		mockGetWorkingDir  func() (string, error)
		expected           string
		expectedErr        error
	}{
		{
			name:     "Home directory",
			path:     "~/data",
			expected: home + "/data",
		},
		{
			name:     "Current directory path",
			path:     "./",
			expected: workingDir,
			// 	expectedPath:  filepath.Join(currentDir, "./mydir"),
		},
		{
			name:     "Relative directory - 1 deep",
			path:     "./data",
			expected: workingDir + "/data",
		},
		{
			name:     "Relative directory - 2 deep",
			path:     "../data",
			expected: currentDir + "/data",
		},
		{
			name:     "Absolute path",
			path:     "/home/logs",
			expected: "/home/logs",
		},
		{
			name:        "Empty path",
			expected:    "",
			expectedErr: ErrInvalidPath,
		},
		{
			name: "Error Getting User Home Directory",
			path: "~/data",
			mockGetUserHomeDir: func() (string, error) {
				return "", fmt.Errorf("forced get user home dir error")
			},
			expectedErr: fmt.Errorf("forced get user home dir error"),
		},
		{
			name: "Error Getting Working Directory",
			path: "./data",
			mockGetWorkingDir: func() (string, error) {
				return "", fmt.Errorf("forced get working dir error")
			},
			expectedErr: fmt.Errorf("forced get working dir error"),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// restore the original functions after the test
			origGetUserHomeDir := getUserHomeDir
			origGetWorkingDir := getWorkingDir
			defer func() { getUserHomeDir = origGetUserHomeDir; getWorkingDir = origGetWorkingDir }()
			// mock functions if needed
			if test.mockGetUserHomeDir != nil {
				getUserHomeDir = test.mockGetUserHomeDir
			}
			if test.mockGetWorkingDir != nil {
				getWorkingDir = test.mockGetWorkingDir
			}

			result, err := ParseRelativePath(test.path)
			if test.expectedErr != nil {
				require.EqualError(t, err, test.expectedErr.Error(), "error should match expected value")
			} else {
				require.NoError(t, err, "parsing relative path should not produce an error")
				require.Equal(t, test.expected, result, "relative path should match expected value, got: %s, expected: %s", result, test.expected)
			}
		})
	}
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(afs afero.Fs)
		file           string
		mockPathExists func(fs afero.Fs, path string) (bool, error)
		expectedError  error
	}{
		{
			name: "File is Valid",
			setup: func(afs afero.Fs) {
				require.NoError(t, afero.WriteFile(afs, "/file.txt", []byte("content"), 0644))
			},
			file: "/file.txt",
		},
		{
			name: "File is Empty",
			setup: func(afs afero.Fs) {
				require.NoError(t, afero.WriteFile(afs, "/emptyfile.txt", []byte(""), 0644))
			},
			file:          "/emptyfile.txt",
			expectedError: ErrFileIsEmtpy,
		},
		{
			name:          "File Does Not Exist",
			setup:         func(_ afero.Fs) {},
			file:          "/nonexistent",
			expectedError: ErrFileDoesNotExist,
		},
		{
			name: "Path is a Directory",
			setup: func(afs afero.Fs) {
				require.NoError(t, afs.Mkdir("/directory", 0755))
			},
			file:          "/directory",
			expectedError: ErrPathIsDir,
		},
		{
			name:  "Validate Path Error",
			setup: func(afs afero.Fs) {},
			file:  "/some/path",
			mockPathExists: func(fs afero.Fs, path string) (bool, error) {
				return false, fmt.Errorf("forced existence check error")
			},
			expectedError: fmt.Errorf("forced existence check error"),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// restore the original functions after the test
			origPathExists := pathExists
			defer func() { pathExists = origPathExists }()

			// mock functions if needed
			if test.mockPathExists != nil {
				pathExists = test.mockPathExists
			}

			afs := afero.NewMemMapFs()
			test.setup(afs)

			err := ValidateFile(afs, test.file)
			if test.expectedError != nil {
				require.Error(t, err, "error should not be nil")
				require.ErrorContains(t, err, test.expectedError.Error(), "error should contain expected value")
			} else {
				require.NoError(t, err, "validating file should not produce an error")
			}
		})
	}
}

func TestGetFileContents(t *testing.T) {
	// define test cases
	tests := []struct {
		name          string
		path          string
		fileContents  []byte
		mockReadFile  func(afero.Fs, string) ([]byte, error)
		expectedError error
	}{
		{
			name:         "Valid Generated file",
			path:         "/valid/file/path",
			fileContents: []byte("file contents"),
		},
		{
			name:          "Empty File",
			path:          "/invalid/file/path",
			fileContents:  []byte(""),
			expectedError: ErrFileIsEmtpy,
		},
		{
			name:          "Invalid File Path",
			path:          "/missing/file/path",
			expectedError: ErrFileDoesNotExist,
		},
		{
			name:         "Read File Error",
			path:         "/valid/file/path",
			fileContents: []byte("file contents"),
			mockReadFile: func(_ afero.Fs, _ string) ([]byte, error) {
				return nil, fmt.Errorf("forced read file error")
			},
			expectedError: fmt.Errorf("forced read file error"),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// restore the original function after the test
			originalReadFileFunc := readFile
			defer func() { readFile = originalReadFileFunc }()

			// mock the readFile function
			if test.mockReadFile != nil {
				readFile = test.mockReadFile
			}

			// create a new memory filesystem
			afs := afero.NewMemMapFs()

			// create the file if the test case specifies contents
			if test.fileContents != nil {
				require.NoError(t, afero.WriteFile(afs, test.path, test.fileContents, 0644), "failed to create file")
			}

			// call readFile and check the results
			result, err := GetFileContents(afs, test.path)

			// validate results
			if test.expectedError != nil {
				require.Error(t, err, "expected an error but got none")
				require.ErrorContains(t, err, test.expectedError.Error(), "error should contain expected value")

			} else {
				require.NoError(t, err, "did not expect an error but got one")
				require.Equal(t, test.fileContents, result, "file contents should match expected value")
			}

		})
	}

}

func TestCheckForNewerVersion(t *testing.T) {
	tests := []struct {
		name           string
		latestVersion  string
		currentVersion string
		expectedNewer  bool
		expectedError  error
	}{
		{
			name:           "Newer version available",
			latestVersion:  "v1.1.0",
			currentVersion: "v1.0.0",
			expectedNewer:  true,
		},
		{
			name:           "No newer version",
			latestVersion:  "v1.0.0",
			currentVersion: "v1.0.0",
			expectedNewer:  false,
		},
		{
			name:           "Invalid current version",
			latestVersion:  "v1.1.0",
			currentVersion: "invalid-version",
			expectedNewer:  false,
			expectedError:  ErrParsingCurrentVersion,
		},
		{
			name:           "Invalid latest version",
			latestVersion:  "invalid-version",
			currentVersion: "v1.0.0",
			expectedNewer:  false,
			expectedError:  ErrParsingLatestVersion,
		},
		{
			name:          "Error Fetching Latest Release",
			expectedError: ErrFetchingLatestRelease,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create a test server
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.expectedError == ErrFetchingLatestRelease {
					http.Error(w, "error", http.StatusInternalServerError)
				} else {
					fmt.Fprintf(w, `{"tag_name": "%s"}`, tt.latestVersion)
				}
			}))
			defer ts.Close()

			// Override the GitHub client base URL
			client := github.NewClient(nil)
			newBaseURL, err := client.BaseURL.Parse(ts.URL + "/")
			require.NoError(t, err, "failed to parse base URL")
			client.BaseURL = newBaseURL

			// Check for newer version
			newer, version, err := CheckForNewerVersion(client, tt.currentVersion)

			// Check for expected error
			if tt.expectedError != nil {
				require.Error(t, err, "error was expected")
				require.ErrorContains(t, err, tt.expectedError.Error(), "error should contain expected value")
			} else {
				require.NoError(t, err, "checking for newer version should not produce an error")

				// Check the expected values
				require.Equal(t, tt.expectedNewer, newer)
				require.Equal(t, tt.latestVersion, version)
			}
		})
	}
}
