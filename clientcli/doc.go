// Package clientcli provides a client library for the canned reports HTTP API.
//
// It covers creating reports, appending revisions, downloading and
// inspecting revisions, deleting, and listing. Requests carry a bearer
// token whose role claim the server checks when authorization is enabled.
// The package includes profile-based configuration for managing connections
// to multiple servers.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{
//		Endpoint: "http://localhost:5708",
//		Token:    os.Getenv("CANNEDREPORTS_TOKEN"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	report, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath:   "./sales.csv",
//		Description: "monthly sales",
//	})
//
//	// Previous revision
//	result, _, err := client.Get(ctx, clientcli.GetOptions{
//		Identifier: report.Identifier,
//		Revision:   "-1",
//	})
//
// # Profile Configuration
//
//	configFile, err := clientcli.LoadConfigFile(clientcli.DefaultConfigPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := clientcli.New(clientcli.ConfigFromProfile(profile))
//
// # Output Formatting
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatReport(os.Stdout, "Uploaded", report)
package clientcli
