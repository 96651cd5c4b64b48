package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testAccountID = "111122223333"
	testRegion    = "us-east-1"
)

type objects struct {
	roleWebApp   Principal
	userAlice    Principal
	groupAdmin   Principal
	externalAcc1 Principal

	dbAmz          *Database
	tbAmzUser      *Table
	colAmzUserID   *Column
	colAmzUserPass *Column
	dlLoc          *DataLakeLocation
	filter         *DataCellsFilter

	tagAdminY   *Tag
	tagAdminN   *Tag
	tagRegularN *Tag

	grantAliceAdminY    *Grant
	attachmentDBAdminY  *TagAttachment
	attachmentColPassRN *TagAttachment
}

func (o *objects) resources() []Resource {
	return []Resource{o.dbAmz, o.tbAmzUser, o.colAmzUserID, o.colAmzUserPass, o.dlLoc, o.filter, o.tagAdminY, o.tagAdminN, o.tagRegularN}
}

func (o *objects) principals() []Principal {
	return []Principal{o.roleWebApp, o.userAlice, o.groupAdmin, o.externalAcc1}
}

func newObjects(t *testing.T) *objects {
	t.Helper()
	var (
		o   objects
		err error
	)

	o.roleWebApp, err = NewIAMRole("arn:aws:iam::" + testAccountID + ":role/ec2-web-app")
	require.NoError(t, err)
	o.userAlice, err = NewIAMUser("arn:aws:iam::" + testAccountID + ":user/alice")
	require.NoError(t, err)
	o.groupAdmin, err = NewIAMGroup("arn:aws:iam::" + testAccountID + ":group/Admin")
	require.NoError(t, err)
	o.externalAcc1, err = NewExternalAccount("111111111111")
	require.NoError(t, err)

	o.dbAmz, err = NewDatabase(testAccountID, testRegion, "amz")
	require.NoError(t, err)
	o.tbAmzUser, err = o.dbAmz.AddTable("user")
	require.NoError(t, err)
	o.colAmzUserID, err = o.tbAmzUser.AddColumn("id")
	require.NoError(t, err)
	o.colAmzUserPass, err = o.tbAmzUser.AddColumn("password")
	require.NoError(t, err)

	o.dlLoc, err = NewDataLakeLocation(testAccountID, "arn:aws:s3:::111122223333-us-east-1-artifacts/datalake/*", "")
	require.NoError(t, err)
	o.filter, err = NewDataCellsFilter(DataCellsFilterSpec{
		FilterName:     "no-user-password",
		CatalogID:      testAccountID,
		DatabaseName:   "amz",
		TableName:      "user",
		ExcludeColumns: []string{"password"},
	})
	require.NoError(t, err)

	o.tagAdminY, err = NewTag(testAccountID, "admin", "y")
	require.NoError(t, err)
	o.tagAdminN, err = NewTag(testAccountID, "admin", "n")
	require.NoError(t, err)
	o.tagRegularN, err = NewTag(testAccountID, "regular", "n")
	require.NoError(t, err)

	o.grantAliceAdminY, err = NewGrant(o.userAlice, o.tagAdminY, PermSuperDatabase)
	require.NoError(t, err)
	o.attachmentDBAdminY, err = NewTagAttachment(o.dbAmz, o.tagAdminY)
	require.NoError(t, err)
	o.attachmentColPassRN, err = NewTagAttachment(o.colAmzUserPass, o.tagRegularN)
	require.NoError(t, err)

	return &o
}
